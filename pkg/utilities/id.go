package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string. Used for account IDs
// and token JTIs, where a sortable opaque identifier is wanted.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewSnowflakeID generates a snowflake ID string using a node ID from the
// SNOWFLAKE_NODE environment variable (default node 1). The node is created
// once and reused. If node setup fails it falls back to a KSUID string so a
// unique ID is always returned.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
			if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			return
		}
		node = n
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
