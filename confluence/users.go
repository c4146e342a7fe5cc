package confluence

import (
	"context"
	"net/url"
)

// User is the subset of the user resource the relay shows in the editor.
type User struct {
	AccountID      string `json:"accountId"`
	DisplayName    string `json:"displayName"`
	PublicName     string `json:"publicName"`
	Email          string `json:"email"`
	ProfilePicture struct {
		Path string `json:"path"`
	} `json:"profilePicture"`
}

// Name is what the editor shows for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.PublicName
}

func (c *Client) GetUser(ctx context.Context, accountID string) (*User, error) {
	var out User
	if err := c.getJSON(ctx, "GetUser", "/rest/api/user", url.Values{"accountId": {accountID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserGroups lists the names of the groups accountID belongs to.
func (c *Client) GetUserGroups(ctx context.Context, accountID string) ([]string, error) {
	var out struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	query := url.Values{"accountId": {accountID}, "limit": {"200"}}
	if err := c.getJSON(ctx, "GetUserGroups", "/rest/api/user/memberof", query, &out); err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(out.Results))
	for _, g := range out.Results {
		groups = append(groups, g.Name)
	}
	return groups, nil
}

// IsAdmin reports whether accountID is a member of any of adminGroups.
func (c *Client) IsAdmin(ctx context.Context, accountID string, adminGroups []string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	groups, err := c.GetUserGroups(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		for _, admin := range adminGroups {
			if g == admin {
				return true, nil
			}
		}
	}
	return false, nil
}
