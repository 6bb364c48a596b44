// Package query turns an API query string into a MongoDB filter and find
// options: filtering with gte/gt/lte/lt operators, multi-key sorting, field
// projection and pagination.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// operators allowed inside bracketed filter keys, e.g. price[gte]=500.
var operators = map[string]string{
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
}

var reservedKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

type Features struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Page       int64
	Limit      int64
}

// Parse builds Features from a raw query string mapping. Unknown operators
// and keys carrying a raw "$" are dropped rather than forwarded to the
// database.
func Parse(values url.Values) Features {
	f := Features{
		Filter: bson.M{},
		Page:   DefaultPage,
		Limit:  DefaultLimit,
	}

	for key, raw := range values {
		if _, ok := reservedKeys[key]; ok {
			continue
		}
		field, op, ok := splitOperator(key)
		if !ok {
			continue
		}
		if len(raw) == 0 {
			continue
		}

		if op == "" {
			if len(raw) > 1 {
				in := make([]interface{}, 0, len(raw))
				for _, v := range raw {
					in = append(in, coerce(v))
				}
				f.Filter[field] = bson.M{"$in": in}
			} else {
				f.Filter[field] = coerce(raw[0])
			}
			continue
		}

		cond, exists := f.Filter[field].(bson.M)
		if !exists {
			cond = bson.M{}
		}
		cond[op] = coerce(raw[len(raw)-1])
		f.Filter[field] = cond
	}

	if sort := strings.TrimSpace(values.Get("sort")); sort != "" {
		f.Sort = parseSort(sort)
	} else {
		// deterministic default: newest first, id tiebreak
		f.Sort = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}

	if fields := strings.TrimSpace(values.Get("fields")); fields != "" {
		f.Projection = parseProjection(fields)
	} else {
		f.Projection = bson.M{"__v": 0}
	}

	if page, err := strconv.ParseInt(values.Get("page"), 10, 64); err == nil && page >= 1 {
		f.Page = page
	}
	if limit, err := strconv.ParseInt(values.Get("limit"), 10, 64); err == nil && limit >= 1 {
		f.Limit = limit
	}

	return f
}

// Skip is the document offset for the requested page. A page past the end of
// the collection yields an empty result set, not an error.
func (f Features) Skip() int64 {
	return (f.Page - 1) * f.Limit
}

func (f Features) FindOptions() *options.FindOptions {
	return options.Find().
		SetSort(f.Sort).
		SetProjection(f.Projection).
		SetSkip(f.Skip()).
		SetLimit(f.Limit)
}

// splitOperator decodes "price[gte]" into ("price", "$gte"). A bare field
// name maps to equality. Keys with unknown operators or embedded "$" are
// rejected.
func splitOperator(key string) (field, op string, ok bool) {
	if strings.Contains(key, "$") {
		return "", "", false
	}

	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, "", key != ""
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", false
	}

	field = key[:open]
	name := key[open+1 : len(key)-1]
	mapped, known := operators[name]
	if !known {
		return "", "", false
	}
	return field, mapped, true
}

func parseSort(raw string) bson.D {
	sort := bson.D{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" || token == "-" {
			continue
		}
		direction := 1
		if strings.HasPrefix(token, "-") {
			direction = -1
			token = token[1:]
		}
		sort = append(sort, bson.E{Key: token, Value: direction})
	}
	return sort
}

func parseProjection(raw string) bson.M {
	include := bson.M{}
	exclude := bson.M{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" || token == "-" {
			continue
		}
		if strings.HasPrefix(token, "-") {
			exclude[token[1:]] = 0
			continue
		}
		include[token] = 1
	}
	// Mongo rejects projections mixing inclusion and exclusion, so when both
	// appear the inclusions win.
	if len(include) > 0 {
		return include
	}
	if len(exclude) > 0 {
		return exclude
	}
	return bson.M{"__v": 0}
}

// coerce converts query values into the types Mongo comparisons expect.
func coerce(raw string) interface{} {
	value := strings.TrimSpace(raw)
	if number, err := strconv.ParseFloat(value, 64); err == nil {
		return number
	}
	if value == "true" || value == "false" {
		return value == "true"
	}
	return value
}
