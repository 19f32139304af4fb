package remote

import "context"

type boundClient struct {
	Store
	user *User
}

// Bind returns a Client for store whose session belongs to user. A nil user
// produces an anonymous client.
func Bind(store Store, user *User) Client {
	return &boundClient{Store: store, user: user}
}

func (c *boundClient) CurrentUser(context.Context) (*User, error) {
	if c.user == nil {
		return nil, nil
	}
	u := *c.user
	return &u, nil
}
