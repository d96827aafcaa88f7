package session

// State is the derived rendering state of the session. It is never
// persisted; it is recomputed from the identity and the stored patient OTP
// record on every identity change.
type State int

const (
	// StateLoading covers the initial identity query only; once that query
	// settles the machine never returns here.
	StateLoading State = iota
	// StateUnauthenticated means no identity and no usable OTP record.
	StateUnauthenticated
	// StateOTPAuthorized means no identity, but a patient OTP record within
	// its validity window grants the reduced-privilege view.
	StateOTPAuthorized
	// StateAuthenticated means the identity query returned a user.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateOTPAuthorized:
		return "otp-authorized"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}
