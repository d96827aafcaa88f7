// Package redirect computes safe post-login navigation targets. A redirect
// query parameter is honoured only when it points back at the current
// origin; anything else falls back to a known-safe default.
package redirect

import (
	"net/url"

	"github.com/rs/zerolog/log"
)

// ParamName is the query parameter carried through the login flow.
const ParamName = "redirect"

// Resolve reads the redirect parameter from loc and returns the target to
// navigate to after sign-in. The returned value is always origin-relative:
// a missing parameter, an unparsable value or a foreign origin all resolve
// to fallback. Scheme, host and port must match exactly for a target to be
// trusted.
func Resolve(loc *url.URL, fallback string) string {
	if loc == nil {
		return fallback
	}
	raw := loc.Query().Get(ParamName)
	if raw == "" {
		return fallback
	}

	target, err := url.Parse(raw)
	if err != nil {
		log.Warn().Str("redirect", raw).Err(err).Msg("Malformed redirect parameter, using fallback")
		return fallback
	}

	// Relative targets carry no origin and are safe as-is.
	if target.Scheme == "" && target.Host == "" {
		return pathWithQuery(target)
	}

	if target.Scheme != loc.Scheme || target.Host != loc.Host {
		log.Warn().
			Str("redirect", raw).
			Str("origin", loc.Scheme+"://"+loc.Host).
			Msg("Cross-origin redirect rejected, using fallback")
		return fallback
	}

	return pathWithQuery(target)
}

// WithReturnTo appends a redirect parameter pointing back at returnTo,
// so the user lands where they were after re-authenticating.
func WithReturnTo(path, returnTo string) string {
	u := url.URL{Path: path}
	q := url.Values{}
	q.Set(ParamName, returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

func pathWithQuery(u *url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
