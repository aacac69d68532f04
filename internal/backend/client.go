package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nillzand/ehsan-meals/internal/api/dto"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/gateway"
)

// Client is the typed API of the meal backend. Every call goes through the gateway.
type Client struct {
	gw *gateway.Gateway
}

func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Me returns the caller's profile, including the remaining budget.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var resp dto.UserResponse
	if err := c.gw.DoJSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/me/"}, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.ToDomain(), nil
}

// MySchedules lists the schedules visible to the caller.
func (c *Client) MySchedules(ctx context.Context) ([]domain.Schedule, error) {
	var resp []dto.ScheduleResponse
	if err := c.gw.DoJSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/schedules/my-menu/"}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Schedule, 0, len(resp))
	for _, s := range resp {
		for _, m := range s.DailyMenus {
			if err := m.Validate(); err != nil {
				return nil, err
			}
		}
		out = append(out, s.ToDomain())
	}
	return out, nil
}

// DailyMenu fetches the menu of a schedule for one date. A 404 or an empty
// list means there is no menu and yields nil without error.
func (c *Client) DailyMenu(ctx context.Context, scheduleID int64, date domain.Date) (*domain.DailyMenu, error) {
	resp, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/schedules/%d/daily-menu", scheduleID),
		Query:  url.Values{"date": {date.String()}},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gateway.DecodeError(resp.StatusCode, resp.Body)
	}
	return decodeDailyMenu(resp.Body)
}

func decodeDailyMenu(body []byte) (*domain.DailyMenu, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []dto.DailyMenuResponse
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode daily menu list: %w", err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return toDailyMenu(list[0])
	}

	var single dto.DailyMenuResponse
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode daily menu: %w", err)
	}
	return toDailyMenu(single)
}

func toDailyMenu(resp dto.DailyMenuResponse) (*domain.DailyMenu, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	menu := resp.ToDomain()
	return &menu, nil
}

// Orders lists the orders visible to the caller.
func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	var resp []dto.OrderResponse
	if err := c.gw.DoJSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/orders/"}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(resp))
	for _, o := range resp {
		out = append(out, o.ToDomain())
	}
	return out, nil
}

// CreateOrder submits a selection for a daily menu.
func (c *Client) CreateOrder(ctx context.Context, menuID int64, sel domain.MenuSelection) (domain.Order, error) {
	var resp dto.OrderResponse
	req := gateway.Request{Method: http.MethodPost, Path: "/orders/", Body: dto.NewOrderRequest(menuID, sel)}
	if err := c.gw.DoJSON(ctx, req, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.ToDomain(), nil
}

// CancelOrder deletes an order.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	return c.gw.DoJSON(ctx, gateway.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/orders/%d/", orderID)}, nil)
}
