package replication

import (
	"fmt"
	"net"
	"strconv"
)

// ShardAddrs derives one listen/dial address per shard from a single
// configured base address, so a cluster with n shards runs n independent
// master↔slave TCP links (base port+0, +1, ... +n-1) instead of tagging a
// shard index onto every wire frame. base must be a "host:port" pair.
func ShardAddrs(base string, shardCount int) ([]string, error) {
	host, portStr, err := net.SplitHostPort(base)
	if err != nil {
		return nil, fmt.Errorf("replication: parse base address %q: %w", base, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("replication: parse base address port %q: %w", base, err)
	}

	addrs := make([]string, shardCount)
	for i := range shardCount {
		addrs[i] = net.JoinHostPort(host, strconv.Itoa(port+i))
	}

	return addrs, nil
}
