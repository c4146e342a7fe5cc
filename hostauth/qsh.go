package hostauth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// ContextQSH is the hash value Connect puts into tokens minted by the
// browser (AP.context.getToken), which are not bound to one request.
const ContextQSH = "context-qsh"

// QueryStringHash computes the qsh claim for a request. basePath is the path
// of the base URL the request is relative to (the app's base URL for
// inbound requests, the tenant's /wiki for outbound ones).
func QueryStringHash(method string, u *url.URL, basePath string) string {
	sum := sha256.Sum256([]byte(CanonicalRequest(method, u, basePath)))
	return hex.EncodeToString(sum[:])
}

// CanonicalRequest renders method, path and query in Atlassian's canonical
// form: METHOD&path&sorted-query.
func CanonicalRequest(method string, u *url.URL, basePath string) string {
	return strings.ToUpper(method) + "&" + canonicalPath(u, basePath) + "&" + canonicalQuery(u.Query())
}

func canonicalPath(u *url.URL, basePath string) string {
	path := u.EscapedPath()
	basePath = strings.TrimRight(basePath, "/")
	if basePath != "" && strings.HasPrefix(path, basePath) {
		path = strings.TrimPrefix(path, basePath)
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ReplaceAll(path, "&", "%26")
}

func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "jwt" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return encodeRFC3986(keys[i]) < encodeRFC3986(keys[j]) })

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := make([]string, 0, len(values[k]))
		for _, v := range values[k] {
			vals = append(vals, encodeRFC3986(v))
		}
		sort.Strings(vals)
		parts = append(parts, encodeRFC3986(k)+"="+strings.Join(vals, ","))
	}
	return strings.Join(parts, "&")
}

func encodeRFC3986(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	return strings.ReplaceAll(escaped, "%7E", "~")
}
