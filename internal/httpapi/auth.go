package httpapi

import (
	"context"
	"net/http"

	"github.com/mgajardo/backdesk/internal/remote"
)

// Login exchanges credentials for a session. A 401 here means the
// credentials were rejected; it never touches the current session.
func (c *Client) Login(ctx context.Context, email, password string) (remote.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	req, err := c.jsonRequest(ctx, http.MethodPost, "/auth/login", payload)
	if err != nil {
		return remote.Session{}, err
	}

	var sess remote.Session
	if err := c.doJSON(req, false, &sess); err != nil {
		return remote.Session{}, err
	}
	return sess, nil
}

// Logout revokes token on the service side.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	c.bearer(req, token)
	return c.doJSON(req, true, nil)
}

// Me validates token and returns the identity it authenticates.
func (c *Client) Me(ctx context.Context, token string) (remote.Identity, error) {
	req, err := c.getRequest(ctx, "/auth/me", nil)
	if err != nil {
		return remote.Identity{}, err
	}
	c.bearer(req, token)

	var ident remote.Identity
	if err := c.doJSON(req, true, &ident); err != nil {
		return remote.Identity{}, err
	}
	return ident, nil
}
