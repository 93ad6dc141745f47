package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "catalog_products"

// buildIndexMapping returns the JSON mapping for the products index. Names
// get an edge n-gram subfield so partial words still rank.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "catalog_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      },
      "normalizer": {
        "lowercase_keyword": {
          "type": "custom",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "name":           { "type": "text", "analyzer": "catalog_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "catalog_text" } } },
      "slug":           { "type": "keyword" },
      "description":    { "type": "text", "analyzer": "catalog_text" },
      "brand":          { "type": "text", "analyzer": "catalog_text", "fields": { "keyword": { "type": "keyword" } } },
      "tags":           { "type": "keyword", "normalizer": "lowercase_keyword" },
      "categories":     { "type": "text", "analyzer": "catalog_text", "fields": { "keyword": { "type": "keyword" } } },
      "category_slugs": { "type": "keyword" },
      "price":          { "type": "long" },
      "is_digital":     { "type": "boolean" },
      "is_featured":    { "type": "boolean" },
      "created_at":     { "type": "date" },
      "updated_at":     { "type": "date" }
    }
  }
}`
}
