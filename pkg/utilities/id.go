package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake IDs from a single node so IDs generated in the
// same millisecond still differ by sequence number.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator builds a generator for nodeID. If the node cannot be
// initialized (out of range id) the generator falls back to KSUIDs.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// NewID returns the next identifier as a string.
func (g *IDGenerator) NewID() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}

var (
	defaultGenOnce sync.Once
	defaultGen     *IDGenerator
)

// NodeFromEnv reads SNOWFLAKE_NODE, defaulting to node 1 when unset or invalid.
func NodeFromEnv() int64 {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		return 1
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}

// NewSnowflakeID generates a snowflake ID string from the process-wide
// generator, configured once from SNOWFLAKE_NODE.
func NewSnowflakeID() string {
	defaultGenOnce.Do(func() {
		defaultGen = NewIDGenerator(NodeFromEnv())
	})
	return defaultGen.NewID()
}
