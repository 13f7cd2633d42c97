package main

import (
	"github.com/spf13/cobra"

	"github.com/runash/turnauth/adapters/relay"
)

func newRelayCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run a development TURN relay that accepts issued credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			srv, err := relay.NewServer(relay.Config{
				ListenAddress: cfg.RelayListenAddress,
				PublicIP:      cfg.RelayPublicIP,
				Realm:         cfg.RelayRealm,
			}, newCredentialService(cfg, nil, nil))
			if err != nil {
				return err
			}
			defer srv.Close()

			waitForExitSignal()
			return nil
		},
	}
}
