package bridge

import "encoding/json"

// Command is a bridge subprocess command name.
type Command string

const (
	CommandPut    Command = "put"
	CommandGet    Command = "get"
	CommandVerify Command = "verify"
)

// Response is the single JSON line a bridge process prints before exiting.
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type PutArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"` // base64
}

type PutResult struct {
	MerkleRoot string `json:"merkle_root"`
	TxHash     string `json:"tx_hash"`
}

type GetArgs struct {
	Key string `json:"key"`
}

type GetResult struct {
	Value string `json:"value"` // base64
}

type VerifyArgs struct {
	MerkleRoot string `json:"merkle_root"`
}

type VerifyResult struct {
	Valid bool `json:"valid"`
}
