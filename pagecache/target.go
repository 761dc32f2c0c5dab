package pagecache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// TargetOptions configures how a request query becomes a Target.
type TargetOptions struct {
	BaseURL     string
	TargetParam string
	Order       ParamOrder
}

// ParseTarget builds a Target from a raw query string.
//
// The reserved parameter supplies the path and every other parameter is
// forwarded. Pairs are read straight from the raw query so request order
// survives; url.Values would lose it.
func ParseTarget(rawQuery string, opts TargetOptions) (Target, error) {
	param := opts.TargetParam
	if param == "" {
		param = DefaultTargetParam
	}

	pairs, err := parseQueryPairs(rawQuery)
	if err != nil {
		return Target{}, err
	}

	path := ""
	found := false
	params := make([]Param, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Key == param {
			if !found {
				path = pair.Value
				found = true
			}
			continue
		}
		params = append(params, pair)
	}

	if path == "" {
		return Target{}, NewError(KindValidation, fmt.Sprintf("%s is required", param), nil).
			WithCode(CodeTargetRequired)
	}
	if !strings.HasPrefix(path, "/") {
		return Target{}, NewError(KindValidation, "Target path should start with /", nil).
			WithCode(CodeTargetInvalid)
	}

	if opts.Order == ParamOrderSorted {
		sort.SliceStable(params, func(i, j int) bool {
			return params[i].Key < params[j].Key
		})
	}

	return Target{
		BaseURL: strings.TrimRight(opts.BaseURL, "/"),
		Path:    path,
		Params:  params,
	}, nil
}

// Query encodes forwarded params as application/x-www-form-urlencoded.
func (t Target) Query() string {
	if len(t.Params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range t.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// URL returns the canonical target address, used as the cache key.
func (t Target) URL() string {
	address := t.BaseURL + t.Path
	if query := t.Query(); query != "" {
		address += "?" + query
	}
	return address
}

func parseQueryPairs(rawQuery string) ([]Param, error) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	if rawQuery == "" {
		return nil, nil
	}
	parts := strings.Split(rawQuery, "&")
	pairs := make([]Param, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, NewError(KindValidation, "invalid query parameter", err).WithCode(CodeQueryInvalid)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, NewError(KindValidation, "invalid query parameter", err).WithCode(CodeQueryInvalid)
		}
		pairs = append(pairs, Param{Key: key, Value: value})
	}
	return pairs, nil
}
