package cachebuster

import (
	"fmt"
	"net/url"

	"github.com/rs/xid"
)

// DefaultParam is the query parameter carrying the uniqueness token.
const DefaultParam = "v"

var ErrorMalformedPath = fmt.Errorf("Malformed path")

type Buster struct {
	// Query parameter name used for the token.
	Param string
	// Token returns a new uniqueness token for every call.
	// Defaults to a globally unique xid.
	Token func() string
}

func NewBuster(param string) Buster {
	if param == "" {
		param = DefaultParam
	}
	return Buster{
		Param: param,
		Token: NewToken,
	}
}

// NewToken returns a fresh, sortable, globally unique token.
func NewToken() string {
	return xid.New().String()
}

// Append returns the path with a fresh token added to the query string.
// Existing query parameters are kept; an existing token is replaced.
// Every call produces a different path, so a transport-level cache between
// the loader and the content origin can never answer with a stale response.
func (b Buster) Append(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrorMalformedPath, path)
	}
	q := u.Query()
	q.Set(b.param(), b.token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Strip returns the path without the token parameter.
// Paths that cannot be parsed are returned as-is.
func (b Buster) Strip(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	if !q.Has(b.param()) {
		return path
	}
	q.Del(b.param())
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenOf returns the token carried by the path, if any.
func (b Buster) TokenOf(path string) (string, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return "", false
	}
	q := u.Query()
	if !q.Has(b.param()) {
		return "", false
	}
	return q.Get(b.param()), true
}

func (b Buster) param() string {
	if b.Param == "" {
		return DefaultParam
	}
	return b.Param
}

func (b Buster) token() string {
	if b.Token == nil {
		return NewToken()
	}
	return b.Token()
}
