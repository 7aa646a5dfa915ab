package math

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nano-rpc/bind"
	"nano-rpc/client"
	"nano-rpc/codec"
	"nano-rpc/loadbalance"
	"nano-rpc/message"
	"nano-rpc/middleware"
	"nano-rpc/registry"
	"nano-rpc/server"
	"nano-rpc/transport"
)

func TestWireScenario(t *testing.T) {
	req, err := message.DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}`))
	require.NoError(t, err)

	out, err := json.Marshal(NewService().Respond(context.Background(), req))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":5,"id":1}`, string(out))
}

func TestLoopbackClient(t *testing.T) {
	m := NewClient(client.New(transport.Loopback(NewService())))
	ctx := context.Background()

	sum, err := m.Add(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, sum)

	product, err := m.Mult(ctx, 1.5, 4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, product)

	_, err = m.MaybeFail(ctx)
	assert.Equal(t, Failure("nope"), err)
}

func TestSubtractNotFound(t *testing.T) {
	subtract := bind.NewMethod[Operands, float64]("subtract")
	c := client.New(transport.Loopback(NewService()))

	_, err := subtract.Call(context.Background(), c, Operands{X: 3, Y: 1})
	assert.ErrorIs(t, err, client.ErrNotFound)
}

// End to end over framed TCP: etcd-style discovery (in memory), balancing, CBOR frames and
// server middleware.
func TestDiscoveryEndToEnd(t *testing.T) {
	reg := registry.NewMemoryRegistry()

	for i := 0; i < 2; i++ {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		svr := server.NewServer(NewService(), server.WithRegistry(reg, Protocol.Name(), lis.Addr().String(), 10))
		svr.Use(middleware.Recover(zap.NewNop()))
		svr.Use(middleware.Timeout(time.Second))
		go svr.Serve(lis)
		t.Cleanup(func() { svr.Shutdown(time.Second) })
	}

	require.Eventually(t, func() bool {
		instances, _ := reg.Discover(context.Background(), Protocol.Name())
		return len(instances) == 2
	}, time.Second, 10*time.Millisecond)

	tr := transport.NewDiscovery(Protocol.Name(), reg, loadbalance.NewConsistentHashBalancer(),
		transport.WithCodec(codec.CodecTypeCBOR))
	defer tr.Close()
	m := NewClient(client.New(transport.Retry(tr, nil)))

	for i := 0; i < 5; i++ {
		sum, err := m.Add(context.Background(), float64(i), 1)
		require.NoError(t, err)
		assert.Equal(t, float64(i+1), sum)
	}

	_, err := m.MaybeFail(context.Background())
	assert.Equal(t, Failure("nope"), err)
}
