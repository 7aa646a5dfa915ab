package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// etcdEndpoints skips the test unless NANORPC_ETCD_ENDPOINTS points at a live cluster.
func etcdEndpoints(t *testing.T) []string {
	raw := os.Getenv("NANORPC_ETCD_ENDPOINTS")
	if raw == "" {
		t.Skip("NANORPC_ETCD_ENDPOINTS not set")
	}
	return strings.Split(raw, ",")
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t), WithPrefix("/nano-rpc-test/"))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inst1 := ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5, Version: "1.0"}
	require.NoError(t, reg.Register(ctx, "Math", inst1, 10))
	require.NoError(t, reg.Register(ctx, "Math", inst2, 10))

	instances, err := reg.Discover(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst1, inst2}, instances)

	require.NoError(t, reg.Deregister(ctx, "Math", inst1.Addr))
	instances, err = reg.Discover(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst2}, instances)

	require.NoError(t, reg.Deregister(ctx, "Math", inst2.Addr))
}
