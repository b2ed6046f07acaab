package api

import (
	"context"
	"errors"
	"net/url"
)

// Login exchanges a username and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok Token
	if err := c.PostForm(ctx, "/auth/login", form, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("login: response carried no access token")
	}
	return tok.AccessToken, nil
}

// Me resolves the profile of the credential the client carries.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.Get(ctx, "/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Get(ctx, "/auth/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Plantations

func (c *Client) Plantations(ctx context.Context) ([]Plantation, error) {
	var ps []Plantation
	if err := c.Get(ctx, "/plantations/", &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *Client) Plantation(ctx context.Context, id string) (*Plantation, error) {
	var p Plantation
	if err := c.Get(ctx, "/plantations/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePlantation(ctx context.Context, in PlantationInput) (*Plantation, error) {
	var p Plantation
	if err := c.Post(ctx, "/plantations/", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePlantation(ctx context.Context, id string, in PlantationInput) (*Plantation, error) {
	var p Plantation
	if err := c.Put(ctx, "/plantations/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePlantation(ctx context.Context, id string) error {
	return c.Delete(ctx, "/plantations/"+url.PathEscape(id), nil)
}

// Harvests

func (c *Client) Harvests(ctx context.Context) ([]HarvestRecord, error) {
	var hs []HarvestRecord
	if err := c.Get(ctx, "/harvests/", &hs); err != nil {
		return nil, err
	}
	return hs, nil
}

func (c *Client) Harvest(ctx context.Context, id string) (*HarvestRecord, error) {
	var h HarvestRecord
	if err := c.Get(ctx, "/harvests/"+url.PathEscape(id), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) HarvestsByBlock(ctx context.Context, blockID string) ([]HarvestRecord, error) {
	var hs []HarvestRecord
	if err := c.Get(ctx, "/harvests/block/"+url.PathEscape(blockID), &hs); err != nil {
		return nil, err
	}
	return hs, nil
}

func (c *Client) CreateHarvest(ctx context.Context, in HarvestInput) (*HarvestRecord, error) {
	var h HarvestRecord
	if err := c.Post(ctx, "/harvests/", in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// TraceBatch looks a harvest up by batch code. The endpoint is public.
func (c *Client) TraceBatch(ctx context.Context, batchCode string) (*HarvestRecord, error) {
	var h HarvestRecord
	if err := c.Get(ctx, "/harvests/trace/"+url.PathEscape(batchCode), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Dashboard

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	if err := c.Get(ctx, "/dashboard/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) PlantationDashboard(ctx context.Context, plantationID string) (*PlantationDashboard, error) {
	var d PlantationDashboard
	if err := c.Get(ctx, "/dashboard/plantation/"+url.PathEscape(plantationID), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
