package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"nano-rpc/client"
	"nano-rpc/config"
	"nano-rpc/example/math"
	"nano-rpc/loadbalance"
	"nano-rpc/registry"
	"nano-rpc/transport"
)

var (
	callAddr    string
	callURL     string
	callTimeout time.Duration

	callCmd = &cobra.Command{
		Use:   "call <add|mult|maybe_fail> [x y]",
		Short: "Call a math method",
		Long:  longCall,
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			t, closeFn, err := dial(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			result, err := callMath(ctx, math.NewClient(client.New(transport.Retry(t, nil))), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(result, 'g', -1, 64))
			return nil
		},
	}
)

func init() {
	callCmd.Flags().StringVar(&callAddr, "addr", "", "framed TCP address (default: --listen)")
	callCmd.Flags().StringVar(&callURL, "url", "", "JSON-RPC over HTTP endpoint, e.g. http://127.0.0.1:8080/")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 5*time.Second, "call timeout")
	callCmd.Flags().String("balancer", "round_robin", "round_robin, weighted_random or consistent_hash")

	bindFlags(callCmd, map[string]string{"balancer": "balancer"})
}

// dial picks a transport: HTTP if --url is set, etcd discovery if endpoints are configured,
// otherwise a direct framed connection.
func dial(ctx context.Context, cfg *config.Config) (transport.Transport, func(), error) {
	if callURL != "" {
		return transport.NewHTTP(callURL), func() {}, nil
	}

	opts := []transport.FramedOption{transport.WithCodec(cfg.CodecType())}
	if len(cfg.EtcdEndpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			return nil, nil, err
		}
		bal, err := loadbalance.New(cfg.Balancer)
		if err != nil {
			reg.Close()
			return nil, nil, err
		}
		d := transport.NewDiscovery(cfg.Service, reg, bal, opts...)
		return d, func() { d.Close(); reg.Close() }, nil
	}

	addr := callAddr
	if addr == "" {
		addr = cfg.Listen
	}
	f, err := transport.DialFramed(ctx, "tcp", addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func callMath(ctx context.Context, m *math.Client, args []string) (float64, error) {
	method := args[0]
	if method == math.MaybeFail.Name() {
		return m.MaybeFail(ctx)
	}
	if len(args) != 3 {
		return 0, fmt.Errorf("%s takes two numbers", method)
	}
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, err
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return 0, err
	}

	switch method {
	case math.Add.Name():
		return m.Add(ctx, x, y)
	case math.Mult.Name():
		return m.Mult(ctx, x, y)
	}
	return 0, errors.New("unknown method " + method)
}

var longCall = `
Call one method of the math protocol and print the result.

Examples:
  nanorpc call add 2 3
  nanorpc call mult 2 3 --codec cbor --addr 127.0.0.1:11223
  nanorpc call maybe_fail --url http://127.0.0.1:8080/
  nanorpc call add 1 1 --etcd 127.0.0.1:2379 --balancer consistent_hash
`
