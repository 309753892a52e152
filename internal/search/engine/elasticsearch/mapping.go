package elasticsearch

// Default index names for the two document collections.
const (
	DefaultProductsIndex = "products"
	DefaultOrdersIndex   = "orders"
)

// productsMapping returns the JSON mapping for the products index. Name is
// analyzed for full-text matching with a keyword subfield for sorting;
// everything filterable is a keyword.
func productsMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":           { "type": "keyword" },
      "name":         { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "brand":        { "type": "keyword" },
      "model":        { "type": "keyword" },
      "description":  { "type": "text" },
      "price":        { "type": "double" },
      "category":     { "type": "keyword" },
      "color":        { "type": "keyword" },
      "dimensions":   { "type": "keyword", "index": false },
      "weight":       { "type": "keyword", "index": false },
      "energyRating": { "type": "keyword" },
      "madeIn":       { "type": "keyword" },
      "distributor":  { "type": "keyword" },
      "warranty":     { "type": "keyword", "index": false },
      "quality":      { "type": "keyword" },
      "imageURL":     { "type": "keyword", "index": false },
      "features":     { "type": "keyword" },
      "version":      { "type": "long" }
    }
  }
}`
}

// ordersMapping returns the JSON mapping for the orders index.
func ordersMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":         { "type": "keyword" },
      "orderId":    { "type": "keyword" },
      "customerId": { "type": "keyword" },
      "productId":  { "type": "keyword" },
      "status":     { "type": "keyword" },
      "date":       { "type": "date" },
      "version":    { "type": "long" }
    }
  }
}`
}
