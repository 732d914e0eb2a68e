package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

func demoCmd(g *globals) *cobra.Command {
	sf := &sandboxFlags{settleAfter: 3}
	rf := &runFlags{
		billing: models.BillingInfo{Name: "Nguyen Van A", Phone: "0900000000", Address: "1 Le Loi", City: "Jakarta"},
		pickup:  models.Endpoint{Location: "Jakarta"},
		dropoff: models.Endpoint{Location: "Jakarta"},
		cars:    []string{"demo-car"},
	}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a checkout against a throwaway sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return err
			}

			cfg := *g.cfg
			cfg.API.BaseURL = fmt.Sprintf("http://%s/api/", ln.Addr())

			eg, ctx := errgroup.WithContext(cmd.Context())
			serveCtx, stopServing := context.WithCancel(ctx)
			defer stopServing()

			eg.Go(func() error {
				return serveSandbox(serveCtx, ln, &cfg, g.logger, sf)
			})
			eg.Go(func() error {
				defer stopServing()
				return runCheckout(ctx, cmd.OutOrStdout(), &cfg, g.logger, rf)
			})
			return eg.Wait()
		},
	}
	sf.register(cmd)
	rf.register(cmd)
	return cmd
}
