// Package httpapi implements the HTTP invoker component:
// templated request construction, content-type-aware body
// building, execution over klient, response decoding, and structured
// field extraction into the variable store.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/worldline-go/klient"

	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

// DefaultTimeout is used when an ApiSpec carries no explicit deadline.
const DefaultTimeout = 15 * time.Second

// Invoker executes ApiSpec calls against the variable store.
type Invoker struct {
	// InsecureSkipVerify disables TLS verification globally. Keep it
	// false outside local/staging environments with self-signed
	// certificates.
	InsecureSkipVerify bool

	// Timeout bounds every request; DefaultTimeout is used if zero.
	Timeout time.Duration

	// TokenSource, if set, attaches an OAuth2 bearer token to every
	// request via the Authorization header, refreshed transparently by
	// the oauth2 package as it expires. Nil disables this.
	TokenSource oauth2.TokenSource

	// EncKey, if set, decrypts any static ApiInput raw value carrying
	// the internal/crypto "enc:" prefix before it is used. This lets
	// an API catalog on disk hold encrypted static credentials (a
	// long-lived API key, a fixed Authorization header) instead of
	// plaintext.
	EncKey []byte
}

// Result is the outcome of one HTTP call: a transport
// error maps to StatusCode = 0.
type Result struct {
	StatusCode int
	Body       []byte
}

// Invoke builds and executes one request from api against store,
// writes its outputs back into store, and returns "S" or "F".
func (inv *Invoker) Invoke(ctx context.Context, api registry.ApiSpec, store *vars.Store) (string, error) {
	result, err := inv.Execute(ctx, api, store)
	if err != nil {
		return "F", nil //nolint:nilerr // transport errors map to "F", not a fatal driver error
	}

	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return "F", nil
	}

	if len(api.Outputs) == 0 {
		return "S", nil
	}

	return inv.applyOutputs(api, result.Body, store), nil
}

// Execute builds and runs the HTTP request for api, without touching
// the variable store's outputs. Op 112 goes through ExecuteRaw instead
// so it can additionally populate curl_response_code/curl_response_data.
func (inv *Invoker) Execute(ctx context.Context, api registry.ApiSpec, store *vars.Store) (Result, error) {
	timeout, err := api.TimeoutDuration()
	if err != nil {
		return Result{}, err
	}
	if timeout <= 0 {
		timeout = inv.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := inv.buildRequest(ctx, api, store)
	if err != nil {
		return Result{}, fmt.Errorf("build request for api %d: %w", api.APIID, err)
	}

	client, err := inv.buildClient()
	if err != nil {
		return Result{}, fmt.Errorf("build client for api %d: %w", api.APIID, err)
	}

	resp, err := client.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("execute api %d: %w", api.APIID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response for api %d: %w", api.APIID, err)
	}

	return Result{StatusCode: resp.StatusCode, Body: body}, nil
}

// ExecuteRaw is Execute with its Result flattened into plain return
// values, so the flow package's HTTPInvoker interface does not need to
// depend on this package's Result type. Op 112 uses this to populate curl_response_code/curl_response_data
// itself rather than writing the catalog's declared Outputs.
func (inv *Invoker) ExecuteRaw(ctx context.Context, api registry.ApiSpec, store *vars.Store) (int, []byte, error) {
	result, err := inv.Execute(ctx, api, store)
	if err != nil {
		return 0, nil, err
	}
	return result.StatusCode, result.Body, nil
}

func (inv *Invoker) buildClient() (*klient.Client, error) {
	opts := []klient.OptionClientFn{
		klient.WithDisableBaseURLCheck(true),
		klient.WithDisableEnvValues(true),
		klient.WithDisableRetry(true),
	}
	if inv.InsecureSkipVerify {
		opts = append(opts, klient.WithInsecureSkipVerify(true))
	}

	return klient.New(opts...)
}

// resolvedInput is one ApiInput after its value has been resolved
// against the store but before placement.
type resolvedInput struct {
	registry.ApiInput
	value string
}

func (inv *Invoker) resolveInputs(api registry.ApiSpec, store *vars.Store) []resolvedInput {
	resolved := make([]resolvedInput, 0, len(api.Inputs))

	for _, in := range api.Inputs {
		var value string

		switch in.ValueSource {
		case registry.SourceStatic:
			value = in.RawValue
			if inv.EncKey != nil && crypto.IsEncrypted(value) {
				if dec, err := crypto.Decrypt(value, inv.EncKey); err == nil {
					value = dec
				} else {
					slog.Warn("httpapi: failed to decrypt static input, using raw value", "input", in.Name, "error", err)
				}
			}
		default: // dynamic-from-tag, environment: both expand templates
			value = store.ExpandDefault(in.RawValue, in.DefaultValue)
		}

		resolved = append(resolved, resolvedInput{ApiInput: in, value: value})
	}

	return resolved
}

func (inv *Invoker) buildRequest(ctx context.Context, api registry.ApiSpec, store *vars.Store) (*http.Request, error) {
	inputs := inv.resolveInputs(api, store)

	resolvedURL := api.URL
	headers := make(map[string]string)

	for _, in := range inputs {
		if in.Placement == registry.PlacementURL {
			resolvedURL = strings.ReplaceAll(resolvedURL, "{"+in.Name+"}", url.PathEscape(in.value))
		}
	}

	body, contentType, err := inv.buildBody(api, inputs)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(api.Method), resolvedURL, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, in := range inputs {
		if in.Placement == registry.PlacementHeader {
			headers[in.Name] = in.value
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if inv.TokenSource != nil {
		tok, err := inv.TokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("refresh oauth2 token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	return req, nil
}

// reservedMapField is the domain-specific "Map" input name that is
// emitted as a fixed coordinates object regardless of its resolved
// value.
const reservedMapField = "Map"

func (inv *Invoker) buildBody(api registry.ApiSpec, inputs []resolvedInput) (io.Reader, string, error) {
	switch api.ContentType {
	case registry.ContentJSON:
		return inv.buildJSONBody(api, inputs)

	case registry.ContentForm:
		form := url.Values{}
		for _, in := range inputs {
			if in.Placement == registry.PlacementBody {
				form.Set(in.Name, in.value)
			}
		}
		return strings.NewReader(form.Encode()), string(registry.ContentForm), nil

	case registry.ContentMultipart:
		return inv.buildMultipartBody(inputs)

	case registry.ContentWav:
		for _, in := range inputs {
			if in.Placement == registry.PlacementBinary {
				data, err := os.ReadFile(in.value)
				if err != nil {
					return nil, "", fmt.Errorf("read binary input %q: %w", in.Name, err)
				}
				return bytes.NewReader(data), string(registry.ContentWav), nil
			}
		}
		return nil, string(registry.ContentWav), nil

	default: // raw
		for _, in := range inputs {
			if in.Placement == registry.PlacementBinary || in.Placement == registry.PlacementBody {
				return strings.NewReader(in.value), "", nil
			}
		}
		return nil, "", nil
	}
}

func (inv *Invoker) buildJSONBody(api registry.ApiSpec, inputs []resolvedInput) (io.Reader, string, error) {
	if api.IsSimpleJSON() {
		obj := make(map[string]any)
		for _, in := range inputs {
			if in.Placement != registry.PlacementBody {
				continue
			}
			if in.Name == reservedMapField {
				obj[in.Name] = map[string]any{"coordinates": []int{0, 0}}
				continue
			}
			obj[in.Name] = in.value
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, "", fmt.Errorf("marshal simple json body: %w", err)
		}
		return bytes.NewReader(data), string(registry.ContentJSON), nil
	}

	type nameValue struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}

	var values []nameValue
	for _, in := range inputs {
		if in.Placement != registry.PlacementBody {
			continue
		}
		if in.Name == reservedMapField {
			values = append(values, nameValue{Name: in.Name, Value: map[string]any{"coordinates": []int{0, 0}}})
			continue
		}
		values = append(values, nameValue{Name: in.Name, Value: in.value})
	}

	data, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return nil, "", fmt.Errorf("marshal values json body: %w", err)
	}
	return bytes.NewReader(data), string(registry.ContentJSON), nil
}

func (inv *Invoker) buildMultipartBody(inputs []resolvedInput) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, in := range inputs {
		switch in.Placement {
		case registry.PlacementFile:
			if strings.HasSuffix(in.value, ".wav") {
				data, err := os.ReadFile(in.value)
				if err != nil {
					return nil, "", fmt.Errorf("read file input %q: %w", in.Name, err)
				}
				part, err := w.CreateFormFile(in.Name, filepath.Base(in.value))
				if err != nil {
					return nil, "", fmt.Errorf("create form file %q: %w", in.Name, err)
				}
				if _, err := part.Write(data); err != nil {
					return nil, "", fmt.Errorf("write form file %q: %w", in.Name, err)
				}
			} else if err := w.WriteField(in.Name, in.value); err != nil {
				return nil, "", fmt.Errorf("write form field %q: %w", in.Name, err)
			}

		case registry.PlacementBody:
			if err := w.WriteField(in.Name, in.value); err != nil {
				return nil, "", fmt.Errorf("write form field %q: %w", in.Name, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}
