package sui

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	jsonRPCVersion        = "2.0"
	methodGetOwnedObjects = "suix_getOwnedObjects"
	dataTypeMoveObject    = "moveObject"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type objectQuery struct {
	Options objectOptions `json:"options"`
}

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowContent bool `json:"showContent"`
}

type ownedObjectsPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type objectResponse struct {
	Data *objectData `json:"data"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Type     string         `json:"type"`
	Content  *objectContent `json:"content"`
}

type objectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}
