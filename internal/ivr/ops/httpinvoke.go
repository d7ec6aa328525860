package ops

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpHTTPInvoke, httpInvoke)
	flow.RegisterHandler(registry.OpHTTPInvokeCurl, httpInvokeCurl)
}

func httpInvoke(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	api, ok := cc.Registry.API(node.APIID)
	if !ok {
		return "", fmt.Errorf("api %d not found", node.APIID)
	}
	if cc.HTTP == nil {
		return "F", nil
	}
	return cc.HTTP.Invoke(ctx, api, cc.Store)
}

// httpInvokeCurl has the same edge-selection contract as op 111, but
// always writes curl_response_code/curl_response_data so that flows
// written against the provider's own HTTP facility still see those
// variables regardless of which transport actually ran the request.
func httpInvokeCurl(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	api, ok := cc.Registry.API(node.APIID)
	if !ok {
		return "", fmt.Errorf("api %d not found", node.APIID)
	}
	if cc.HTTP == nil {
		return "F", nil
	}

	status, body, err := cc.HTTP.ExecuteRaw(ctx, api, cc.Store)
	if err != nil {
		cc.Store.Set("curl_response_code", "0")
		cc.Store.Set("curl_response_data", "")
		return "F", nil
	}

	cc.Store.Set("curl_response_code", strconv.Itoa(status))
	cc.Store.Set("curl_response_data", string(body))

	if status < 200 || status >= 300 {
		return "F", nil
	}
	return "S", nil
}
