package admission

import "net/http"

// Outcome classifies an admission decision.
type Outcome int

const (
	// OutcomeAllow admits the request.
	OutcomeAllow Outcome = iota
	// OutcomeDeny refuses the request; the caller may retry after fixing the
	// stated reason.
	OutcomeDeny
	// OutcomeFatal refuses the request and terminates the session; the caller
	// must authenticate again.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Reason names why a request was refused.
type Reason string

const (
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonBanned              Reason = "banned"
	ReasonMembershipRequired  Reason = "membership_required"
	ReasonDeviceLimitExceeded Reason = "device_limit_exceeded"
	ReasonVerificationError   Reason = "verification_error"
)

// Decision is the single value every gated request resolves to. Exactly one
// of the three shapes applies: an admitted request carries a tenant binding
// (empty for central scope), a refused one carries a reason.
type Decision struct {
	Outcome     Outcome
	Reason      Reason
	TenantID    string
	ForceLogout bool
}

// Allow admits the request under the given tenant. An empty tenant id means
// central scope.
func Allow(tenantID string) Decision {
	return Decision{Outcome: OutcomeAllow, TenantID: tenantID}
}

// Deny refuses the request.
func Deny(reason Reason, forceLogout bool) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason, ForceLogout: forceLogout}
}

// Fatal refuses the request and ends the session.
func Fatal(reason Reason) Decision {
	return Decision{Outcome: OutcomeFatal, Reason: reason, ForceLogout: true}
}

// Allowed reports whether the request was admitted.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// HTTPStatus maps a refusal to its response status.
func (d Decision) HTTPStatus() int {
	switch d.Reason {
	case ReasonUnauthenticated, ReasonDeviceLimitExceeded:
		return http.StatusUnauthorized
	case ReasonBanned:
		return http.StatusForbidden
	case ReasonMembershipRequired:
		return http.StatusPaymentRequired
	case ReasonVerificationError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}

// Message is the user-facing explanation for a refusal.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonUnauthenticated:
		return "Authentication required."
	case ReasonBanned:
		return "This account has been banned."
	case ReasonMembershipRequired:
		return "An active paid membership is required."
	case ReasonDeviceLimitExceeded:
		return "Maximum number of devices exceeded. All sessions have been logged out."
	case ReasonVerificationError:
		return "Unable to verify membership. Please try again."
	default:
		return "Access denied."
	}
}
