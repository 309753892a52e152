package integration

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
)

// searchHasProduct reports whether a product with the given id is returned by
// the search service for the given query string.
func searchHasProduct(t *testing.T, query, id string) bool {
	t.Helper()
	status, body := httpGet(t, baseURL(searchPort)+"/search/products?query="+url.QueryEscape(query))
	if status != http.StatusOK {
		return false
	}
	products, ok := body["products"].([]interface{})
	if !ok {
		return false
	}
	for _, p := range products {
		doc, ok := p.(map[string]interface{})
		if ok && doc["id"] == id {
			return true
		}
	}
	return false
}

// TestProductLifecycleReachesSearch drives a product through create, update,
// and delete on the catalog service and verifies each state becomes visible
// through the search service.
func TestProductLifecycleReachesSearch(t *testing.T) {
	skipIfNotRunning(t, catalogPort)
	skipIfNotRunning(t, searchPort)

	name := fmt.Sprintf("Integration Kettle %d", time.Now().UnixNano())

	// Create.
	status, body := httpPost(t, baseURL(catalogPort)+"/products", map[string]any{
		"name":     name,
		"brand":    "Acme",
		"price":    29.99,
		"category": "kitchen",
	})
	if status != http.StatusCreated {
		t.Fatalf("create product returned %d: %v", status, body)
	}
	id := dataField(t, body)["id"].(string)

	if !eventually(t, 30*time.Second, func() bool {
		return searchHasProduct(t, name, id)
	}) {
		t.Fatalf("product %s never became searchable", id)
	}

	// Update the price and wait for the new snapshot to land.
	status, body = httpPut(t, baseURL(catalogPort)+"/products/"+id, map[string]any{
		"price": 24.99,
	})
	if status != http.StatusOK {
		t.Fatalf("update product returned %d: %v", status, body)
	}

	if !eventually(t, 30*time.Second, func() bool {
		s, res := httpGet(t, baseURL(searchPort)+"/search/products?query="+url.QueryEscape(name)+"&priceMax=25")
		if s != http.StatusOK {
			return false
		}
		total, ok := res["total"].(float64)
		return ok && total >= 1
	}) {
		t.Fatal("updated price never became searchable")
	}

	// Delete and wait for the document to disappear.
	if status := httpDelete(t, baseURL(catalogPort)+"/products/"+id); status != http.StatusOK {
		t.Fatalf("delete product returned %d", status)
	}

	if !eventually(t, 30*time.Second, func() bool {
		return !searchHasProduct(t, name, id)
	}) {
		t.Fatalf("deleted product %s still searchable", id)
	}
}

// TestOrderStatusReachesSearch creates an order, transitions its status, and
// verifies the search projection follows.
func TestOrderStatusReachesSearch(t *testing.T) {
	skipIfNotRunning(t, orderPort)
	skipIfNotRunning(t, searchPort)

	status, body := httpPost(t, baseURL(orderPort)+"/orders", map[string]any{
		"customerId": fmt.Sprintf("cust-%d", time.Now().UnixNano()),
		"productId":  "prod-integration",
	})
	if status != http.StatusCreated {
		t.Fatalf("create order returned %d: %v", status, body)
	}
	data := dataField(t, body)
	id := data["id"].(string)
	customerID := data["customerId"].(string)

	orderVisibleWithStatus := func(want string) bool {
		s, res := httpGet(t, baseURL(searchPort)+"/search/orders?customerId="+url.QueryEscape(customerID))
		if s != http.StatusOK {
			return false
		}
		orders, ok := res["orders"].([]interface{})
		if !ok {
			return false
		}
		for _, o := range orders {
			doc, ok := o.(map[string]interface{})
			if ok && doc["id"] == id && doc["status"] == want {
				return true
			}
		}
		return false
	}

	if !eventually(t, 30*time.Second, func() bool { return orderVisibleWithStatus("pending") }) {
		t.Fatalf("order %s never became searchable", id)
	}

	status, body = httpPut(t, baseURL(orderPort)+"/orders/"+id+"/status", map[string]any{
		"status": "shipped",
	})
	if status != http.StatusOK {
		t.Fatalf("update order status returned %d: %v", status, body)
	}

	if !eventually(t, 30*time.Second, func() bool { return orderVisibleWithStatus("shipped") }) {
		t.Fatalf("order %s status update never reached search", id)
	}
}
