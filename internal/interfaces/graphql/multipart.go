package graphql

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	appmedia "github.com/mediavault/backend/internal/application/media"
)

// maxUploadMemory bounds the in-memory part of multipart parsing; larger
// parts spill to temp files which are then read back fully.
const maxUploadMemory = 4 << 20

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// ParseMultipartRequest implements the GraphQL multipart request protocol:
// an "operations" field with the JSON request, a "map" field pairing form
// file parts with variable paths, and one part per file. Mapped files land
// in the variables as *media.UploadedFile.
func ParseMultipartRequest(r *http.Request) (*request, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	operations := r.FormValue("operations")
	if operations == "" {
		return nil, fmt.Errorf("missing operations field")
	}
	var req request
	if err := json.Unmarshal([]byte(operations), &req); err != nil {
		return nil, fmt.Errorf("invalid operations JSON: %w", err)
	}
	if req.Variables == nil {
		req.Variables = map[string]interface{}{}
	}

	mapField := r.FormValue("map")
	if mapField == "" {
		return nil, fmt.Errorf("missing map field")
	}
	var fileMap map[string][]string
	if err := json.Unmarshal([]byte(mapField), &fileMap); err != nil {
		return nil, fmt.Errorf("invalid map JSON: %w", err)
	}

	for formKey, paths := range fileMap {
		file, header, err := r.FormFile(formKey)
		if err != nil {
			return nil, fmt.Errorf("missing file part %q", formKey)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("reading file part %q: %w", formKey, err)
		}

		upload := &appmedia.UploadedFile{
			Name: header.Filename,
			Size: header.Size,
			Data: data,
		}
		for _, path := range paths {
			if err := assignVariable(req.Variables, path, upload); err != nil {
				return nil, err
			}
		}
	}

	return &req, nil
}

// assignVariable places a value at a dotted path like "variables.file" or
// "variables.files.0" inside the variables map.
func assignVariable(variables map[string]interface{}, path string, value interface{}) error {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "variables" {
		return fmt.Errorf("invalid file map path %q", path)
	}
	parts = parts[1:]

	var container interface{} = variables
	for i, part := range parts {
		last := i == len(parts)-1
		switch c := container.(type) {
		case map[string]interface{}:
			if last {
				c[part] = value
				return nil
			}
			next, ok := c[part]
			if !ok {
				return fmt.Errorf("file map path %q does not exist in variables", path)
			}
			container = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return fmt.Errorf("invalid list index in file map path %q", path)
			}
			if last {
				c[idx] = value
				return nil
			}
			container = c[idx]
		default:
			return fmt.Errorf("file map path %q does not exist in variables", path)
		}
	}
	return fmt.Errorf("invalid file map path %q", path)
}
