package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hearthkit/hearth/pkg/memory"
)

// AddToGroceryListTool appends items to the household grocery list.
type AddToGroceryListTool struct {
	store    memory.Store
	userID   string
	userName string
}

func NewAddToGroceryListTool(store memory.Store, userID, userName string) *AddToGroceryListTool {
	return &AddToGroceryListTool{store: store, userID: userID, userName: userName}
}

func (t *AddToGroceryListTool) Name() string { return "add_to_grocery_list" }

func (t *AddToGroceryListTool) Description() string {
	return "Add one or more items to the grocery list."
}

func (t *AddToGroceryListTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "Item names to add",
				"items": map[string]any{
					"type": "string",
				},
			},
		},
		"required": []string{"items"},
	}
}

func (t *AddToGroceryListTool) Execute(ctx context.Context, args map[string]any) *Result {
	rawItems, ok := args["items"].([]any)
	if !ok || len(rawItems) == 0 {
		return Fail("items is required and must be a non-empty array")
	}

	var added []string
	for _, raw := range rawItems {
		name, ok := raw.(string)
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		item := &memory.GroceryItem{
			UserID:   t.userID,
			ItemName: strings.TrimSpace(name),
			AddedBy:  t.userName,
		}
		if err := t.store.AddGroceryItem(ctx, item); err != nil {
			return Fail(fmt.Sprintf("could not add %q: %v", name, err))
		}
		added = append(added, item.ItemName)
	}
	if len(added) == 0 {
		return Fail("no valid items to add")
	}
	return Ok(map[string]any{
		"added": added,
		"count": len(added),
	})
}

// ViewGroceryListTool reads the active grocery list.
type ViewGroceryListTool struct {
	store  memory.Store
	userID string
}

func NewViewGroceryListTool(store memory.Store, userID string) *ViewGroceryListTool {
	return &ViewGroceryListTool{store: store, userID: userID}
}

func (t *ViewGroceryListTool) Name() string { return "view_grocery_list" }

func (t *ViewGroceryListTool) Description() string {
	return "Show the current grocery list."
}

func (t *ViewGroceryListTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ViewGroceryListTool) Execute(ctx context.Context, args map[string]any) *Result {
	items, err := t.store.GroceryList(ctx, t.userID, false)
	if err != nil {
		return Fail(fmt.Sprintf("could not load grocery list: %v", err))
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.ItemName)
	}
	return Ok(map[string]any{
		"count": len(names),
		"items": names,
	})
}

// CreateOrderRequestTool turns grocery needs into a pending purchase order.
// Orders always start pending; approval is a separate, human action.
type CreateOrderRequestTool struct {
	store    memory.Store
	userID   string
	userName string
}

func NewCreateOrderRequestTool(store memory.Store, userID, userName string) *CreateOrderRequestTool {
	return &CreateOrderRequestTool{store: store, userID: userID, userName: userName}
}

func (t *CreateOrderRequestTool) Name() string { return "create_order_request" }

func (t *CreateOrderRequestTool) Description() string {
	return "Create a purchase order request for groceries or medicine. The order waits for approval; nothing is bought immediately."
}

func (t *CreateOrderRequestTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "Items to order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":            map[string]any{"type": "string"},
						"quantity":        map[string]any{"type": "number"},
						"unit":            map[string]any{"type": "string"},
						"estimated_price": map[string]any{"type": "number"},
					},
					"required": []string{"name"},
				},
			},
			"order_type": map[string]any{
				"type":        "string",
				"description": "Kind of order",
				"enum":        []string{"grocery", "medicine", "other"},
			},
			"platform": map[string]any{
				"type":        "string",
				"description": "Optional shopping platform to use",
			},
		},
		"required": []string{"items"},
	}
}

func (t *CreateOrderRequestTool) Execute(ctx context.Context, args map[string]any) *Result {
	rawItems, ok := args["items"].([]any)
	if !ok || len(rawItems) == 0 {
		return Fail("items is required and must be a non-empty array")
	}

	var items []memory.OrderItem
	total := 0.0
	for _, raw := range rawItems {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		item := memory.OrderItem{Name: strings.TrimSpace(name), Quantity: 1}
		if qty, ok := floatArg(obj, "quantity"); ok && qty > 0 {
			item.Quantity = qty
		}
		if unit, ok := obj["unit"].(string); ok {
			item.Unit = unit
		}
		if price, ok := floatArg(obj, "estimated_price"); ok && price > 0 {
			item.EstimatedPrice = price
			total += price * item.Quantity
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return Fail("no valid items in the order")
	}

	orderType := stringArg(args, "order_type")
	if orderType == "" {
		orderType = "grocery"
	}

	order := &memory.Order{
		UserID:      t.userID,
		RequestedBy: t.userName,
		OrderType:   orderType,
		Items:       items,
		TotalAmount: total,
		Status:      memory.OrderPending,
		Platform:    stringArg(args, "platform"),
	}
	if err := t.store.CreateOrder(ctx, order); err != nil {
		return Fail(fmt.Sprintf("could not create order request: %v", err))
	}

	return Ok(map[string]any{
		"order_id":        order.ID,
		"status":          string(order.Status),
		"item_count":      len(items),
		"estimated_total": total,
		"note":            "order request created and waiting for approval",
	})
}
