// Package apitest are functions for testing any API (not just Echo).
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
)

type RequestOption func(*http.Request)

func JsonReq() RequestOption {
	return SetReqHeader("Content-Type", "application/json")
}

func SetReqHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func SetQueryParam(key string, value interface{}) RequestOption {
	return SetQueryParams(map[string]interface{}{key: value})
}

func SetQueryParams(values map[string]interface{}) RequestOption {
	return func(r *http.Request) {
		query := r.URL.Query()
		for k, v := range values {
			query.Add(k, fmt.Sprintf("%v", v))
		}
		r.URL.RawQuery = query.Encode()
	}
}

func NewRequest(method, url string, body []byte, opts ...RequestOption) *http.Request {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	must(err)
	for _, o := range opts {
		o(req)
	}
	return req
}

func GetRequest(url string, opts ...RequestOption) *http.Request {
	return NewRequest(http.MethodGet, url, nil, opts...)
}

// JsonRequest marshals body and sets the JSON content type.
func JsonRequest(method, url string, body interface{}, opts ...RequestOption) *http.Request {
	return NewRequest(method, url, MustMarshal(body), append([]RequestOption{JsonReq()}, opts...)...)
}

// RawJsonRequest sends body exactly, so tests can control key order.
func RawJsonRequest(method, url, body string, opts ...RequestOption) *http.Request {
	return NewRequest(method, url, []byte(body), append([]RequestOption{JsonReq()}, opts...)...)
}

type MultipartFile struct {
	Field    string
	Filename string
	Content  []byte
}

// MultipartRequest builds a multipart/form-data request with the given fields and files.
func MultipartRequest(method, url string, fields map[string]string, files []MultipartFile, opts ...RequestOption) *http.Request {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		must(w.WriteField(k, fields[k]))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.Field, f.Filename)
		must(err)
		_, err = fw.Write(f.Content)
		must(err)
	}
	must(w.Close())
	return NewRequest(method, url, buf.Bytes(), append([]RequestOption{SetReqHeader("Content-Type", w.FormDataContentType())}, opts...)...)
}

func MustMarshal(o interface{}) []byte {
	b, err := json.MarshalIndent(o, "", "  ")
	must(err)
	return b
}

func MustUnmarshal(s string) interface{} {
	var out interface{}
	err := json.Unmarshal([]byte(s), &out)
	must(err)
	return out
}

func MustUnmarshalFrom(r io.Reader) interface{} {
	var out interface{}
	err := json.NewDecoder(r).Decode(&out)
	must(err)
	return out
}

func must(e error) {
	if e != nil {
		panic(e)
	}
}
