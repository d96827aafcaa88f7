package session

import (
	"net/url"

	"github.com/rs/zerolog"
)

// Navigator receives the navigation targets the session decides on
// (post-login redirects, the login view after sign-out). The application
// shell implements this; tests use a recorder.
type Navigator interface {
	Navigate(target string)
}

// Locator reports the current location. The session reads it to decide
// whether to redirect after sign-in and to build the redirect-back
// parameter on sign-out.
type Locator func() *url.URL

type logNavigator struct {
	log zerolog.Logger
}

func (n logNavigator) Navigate(target string) {
	n.log.Info().Str("target", target).Msg("Navigate")
}
