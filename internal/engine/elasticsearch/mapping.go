package elasticsearch

// DefaultIndexName is the default index used for product documents.
const DefaultIndexName = "products_project_1"

// keywordFields maps a document field to the exact-match subfield used by
// term filters. Brand goes through a lowercase normalizer so that "Dell"
// and "dell" are the same term.
var keywordFields = map[string]string{
	"brand":         "brand.keyword",
	"category_name": "category_name.keyword",
	"name":          "name.keyword",
}

// buildIndexMapping returns the JSON settings and mapping for the products index.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lowercase_normalizer": {
          "type": "custom",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "analyzer": {
        "product_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":              { "type": "long" },
      "name":            { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "slug":            { "type": "keyword" },
      "description":     { "type": "text", "analyzer": "product_text" },
      "brand":           { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "normalizer": "lowercase_normalizer" } } },
      "category_name":   { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword" } } },
      "available_stock": { "type": "integer" },
      "marked_price":    { "type": "scaled_float", "scaling_factor": 100 },
      "discount_price":  { "type": "scaled_float", "scaling_factor": 100 },
      "is_active":       { "type": "boolean" },
      "created_at":      { "type": "date" },
      "updated_at":      { "type": "date" }
    }
  }
}`
}
