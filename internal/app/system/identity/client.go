// Package identity provides the clients for the platform identity endpoint
// and the organisation-unit directory.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.uber.org/zap"
)

// StatusError is a non-2xx response from the identity endpoint. Callers use
// it to tell a credential rejection apart from an outage.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity: endpoint returned %d: %s", e.Status, e.Body)
}

// Unauthorized reports whether err is a credential rejection rather than a
// transport failure or outage.
func Unauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden)
}

// Config holds the connection settings for the identity client.
type Config struct {
	// BaseURL is the platform API root, shared with the datastore client.
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client fetches the current viewer and the org-unit directory.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
	logger   *zap.Logger
}

// New creates an identity client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("identity: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		base:     cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

// meResponse is the wire shape of the identity endpoint.
type meResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Groups   []idRef  `json:"userGroups"`
	Roles    []idRef  `json:"userRoles"`
	OrgUnits []idRef  `json:"organisationUnits"`
	Perms    []string `json:"authorities"`
}

type idRef struct {
	ID string `json:"id"`
}

func (c *Client) get(ctx context.Context, user, pass, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.SetBasicAuth(user, pass)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: string(b)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Current fetches the configured credential's viewer identity with its
// group, role and org-unit membership sets.
func (c *Client) Current(ctx context.Context) (*models.Viewer, *models.User, error) {
	return c.viewerFor(ctx, c.username, c.password)
}

// CheckCredentials verifies a credential pair against the identity endpoint.
// Used by the login flow; the app never stores passwords of its own.
func (c *Client) CheckCredentials(ctx context.Context, username, password string) (*models.Viewer, *models.User, error) {
	return c.viewerFor(ctx, username, password)
}

func (c *Client) viewerFor(ctx context.Context, user, pass string) (*models.Viewer, *models.User, error) {
	var me meResponse
	if err := c.get(ctx, user, pass, "/me?fields=id,name,email,authorities,userGroups,userRoles,organisationUnits", &me); err != nil {
		return nil, nil, err
	}
	if me.ID == "" {
		return nil, nil, fmt.Errorf("identity: endpoint returned no user id")
	}

	viewer := &models.Viewer{
		ID:       me.ID,
		Name:     me.Name,
		Groups:   idSet(me.Groups),
		Roles:    idSet(me.Roles),
		OrgUnits: idSet(me.OrgUnits),
	}
	u := &models.User{
		ID:          me.ID,
		Name:        me.Name,
		Email:       me.Email,
		Permissions: me.Perms,
	}
	return viewer, u, nil
}

func idSet(refs []idRef) map[string]struct{} {
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r.ID] = struct{}{}
	}
	return set
}

// OrgUnits returns the organisation-unit directory for the sharing UI.
func (c *Client) OrgUnits(ctx context.Context) ([]models.OrgUnit, error) {
	var out struct {
		OrganisationUnits []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Level  int    `json:"level"`
			Parent *idRef `json:"parent"`
		} `json:"organisationUnits"`
	}
	if err := c.get(ctx, c.username, c.password, "/organisationUnits?fields=id,name,level,parent&paging=false", &out); err != nil {
		return nil, err
	}

	units := make([]models.OrgUnit, 0, len(out.OrganisationUnits))
	for _, ou := range out.OrganisationUnits {
		unit := models.OrgUnit{ID: ou.ID, Name: ou.Name, Level: ou.Level}
		if ou.Parent != nil {
			unit.ParentID = ou.Parent.ID
		}
		units = append(units, unit)
	}
	return units, nil
}
