package paramdata

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ErrUnsupportedMediaType is returned for bodies that are not JSON, form or multipart encoded.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// ErrMalformedBody is returned for bodies that cannot be decoded as their content type.
var ErrMalformedBody = errors.New("malformed body")

const defaultMaxMemory = 32 << 20

type Config struct {
	// Bytes of multipart data kept in memory. Defaults to 32MB.
	MaxMemory int64
	// Directory uploaded files are written to. Defaults to os.TempDir().
	TempDir string
}

// FromRequest decodes the query string and body of req.
// JSON bodies are restored on req so later readers see the same bytes.
// Call Cleanup on the container when the request is done to remove uploaded files.
func FromRequest(req *http.Request, cfg Config) (*Container, error) {
	c := New(parseValues(req.URL.Query()), nil)
	if req.Body == nil || req.Body == http.NoBody {
		return c, nil
	}
	mediaType := ""
	if ct := req.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedMediaType, "%q", ct)
		}
		mediaType = mt
	}
	switch {
	case mediaType == "multipart/form-data":
		return c, c.decodeMultipart(req, cfg)
	case mediaType == "application/x-www-form-urlencoded":
		if err := req.ParseForm(); err != nil {
			return nil, errors.Wrap(ErrMalformedBody, err.Error())
		}
		if len(req.PostForm) > 0 {
			c.body = parseValues(req.PostForm)
		}
		return c, nil
	}
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	if len(bytes.TrimSpace(b)) == 0 {
		return c, nil
	}
	if mediaType != "" && mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
		return nil, errors.Wrapf(ErrUnsupportedMediaType, "%q", mediaType)
	}
	if err := json.Unmarshal(b, &c.body); err != nil {
		return nil, errors.Wrap(ErrMalformedBody, err.Error())
	}
	order, err := readOrder(stdjson.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedBody, err.Error())
	}
	c.order = order
	return c, nil
}

func (c *Container) decodeMultipart(req *http.Request, cfg Config) error {
	maxMemory := cfg.MaxMemory
	if maxMemory <= 0 {
		maxMemory = defaultMaxMemory
	}
	if err := req.ParseMultipartForm(maxMemory); err != nil {
		return errors.Wrap(ErrMalformedBody, err.Error())
	}
	form := req.MultipartForm
	if len(form.Value) > 0 {
		c.body = parseValues(form.Value)
	}
	for _, key := range sortedKeys(form.File) {
		for _, fh := range form.File[key] {
			tmpName, err := c.spool(fh, cfg.TempDir)
			if err != nil {
				return err
			}
			setPath(c.files, splitKey(key), fileInfo(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, tmpName))
		}
	}
	return form.RemoveAll()
}

// spool writes an uploaded file to disk so it outlives the multipart form.
func (c *Container) spool(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrapf(err, "opening upload %q", fh.Filename)
	}
	defer src.Close()
	dst, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	c.temp = append(c.temp, dst.Name())
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", errors.Wrapf(err, "writing upload %q", fh.Filename)
	}
	return dst.Name(), dst.Close()
}

// Cleanup removes uploaded files that were written to disk.
func (c *Container) Cleanup() error {
	var first error
	for _, name := range c.temp {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	c.temp = nil
	return first
}

func parseValues(vals url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(vals))
	for _, key := range sortedKeys(vals) {
		path := splitKey(key)
		for _, v := range vals[key] {
			setPath(out, path, v)
		}
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readOrder walks the JSON token stream and records the key order of every object.
func readOrder(dec *stdjson.Decoder) (*fieldOrder, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(stdjson.Delim)
	if !ok {
		return nil, nil
	}
	n := &fieldOrder{list: delim == '['}
	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if !n.list {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key = kt.(string)
		}
		child, err := readOrder(dec)
		if err != nil {
			return nil, err
		}
		n.add(key, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}
