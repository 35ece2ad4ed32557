// Package searchquery builds OpenSearch request bodies from typed
// constructors instead of hand-spelled map literals, the largest source of
// subtle bugs in a query this shape (spec.md §9's "cross-cutting shape to
// pick"). Most handlers that talk to OpenSearch compose queries from these
// fragments; pkg/risk's externalConnsFilter still writes its `bool` map inline.
package searchquery

// M is a convenience alias for an OpenSearch JSON fragment.
type M map[string]any

// Range builds a `range` query clause. gte/lte may be nil to omit a bound.
func Range(field string, gte, lte *string) M {
	body := M{}
	if gte != nil {
		body["gte"] = *gte
	}
	if lte != nil {
		body["lte"] = *lte
	}
	body["format"] = "strict_date_optional_time"
	return M{"range": M{field: body}}
}

// TimeRange is a convenience wrapper over Range for the common case of a
// closed [from, to] window on an RFC-3339 field.
func TimeRange(field, from, to string) M {
	return Range(field, &from, &to)
}

// Term builds a `term` query clause.
func Term(field string, value any) M {
	return M{"term": M{field: value}}
}

// Terms builds a `terms` query clause.
func Terms(field string, values []any) M {
	return M{"terms": M{field: values}}
}

// Exists builds an `exists` query clause.
func Exists(field string) M {
	return M{"exists": M{"field": field}}
}

// Wildcard builds a `wildcard` query clause.
func Wildcard(field, pattern string) M {
	return M{"wildcard": M{field: M{"value": pattern}}}
}

// QueryString builds a `query_string` clause for free-text search.
func QueryString(query string) M {
	return M{"query_string": M{"query": query}}
}

// Bool builds a `bool` query from filter/must/mustNot/should clause lists.
// Any nil/empty slice is omitted from the body.
func Bool(filter, must, mustNot, should []M) M {
	body := M{}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	if len(must) > 0 {
		body["must"] = must
	}
	if len(mustNot) > 0 {
		body["must_not"] = mustNot
	}
	if len(should) > 0 {
		body["should"] = should
	}
	return M{"bool": body}
}

// Terms aggregation.
func TermsAgg(field string, size int) M {
	return M{"terms": M{"field": field, "size": size}}
}

// SumScript builds a painless-scripted sum aggregation from the given
// script source.
func SumScript(source string) M {
	return M{
		"sum": M{
			"script": M{
				"source": source,
				"lang":   "painless",
			},
		},
	}
}

// BytesSumScriptSource is a painless source for `orig_bytes + resp_bytes`
// that counts a missing field as 0.
const BytesSumScriptSource = `
(doc.containsKey('orig_bytes') && !doc['orig_bytes'].empty ? doc['orig_bytes'].value : 0) +
(doc.containsKey('resp_bytes') && !doc['resp_bytes'].empty ? doc['resp_bytes'].value : 0)
`

// DateHistogram builds a date_histogram aggregation with extended bounds, so
// empty intervals inside [minBound, maxBound] still get a bucket.
func DateHistogram(field, interval, minBound, maxBound string) M {
	return M{
		"date_histogram": M{
			"field":            field,
			"fixed_interval":   interval,
			"extended_bounds":  M{"min": minBound, "max": maxBound},
			"min_doc_count":    0,
		},
	}
}

// BucketSort builds a bucket_sort pipeline aggregation that orders the
// parent's buckets by sortField (e.g. a sub-aggregation) and keeps size of
// them.
func BucketSort(sortField string, order string, size int) M {
	return M{
		"bucket_sort": M{
			"sort": []M{{sortField: M{"order": order}}},
			"size": size,
		},
	}
}

// Query wraps a bool/top-level query clause into a full search request body.
func Query(size, from int, query M, sort []M, aggs M) M {
	body := M{"size": size}
	if from > 0 {
		body["from"] = from
	}
	if query != nil {
		body["query"] = query
	}
	if len(sort) > 0 {
		body["sort"] = sort
	}
	if aggs != nil {
		body["aggs"] = aggs
	}
	return body
}
