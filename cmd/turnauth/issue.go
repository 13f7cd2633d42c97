package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

type issueOutput struct {
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	TTL        int64    `json:"ttl"`
	Timestamp  int64    `json:"timestamp"`
	URIs       []string `json:"uris,omitempty"`
}

func newIssueCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "issue",
		Short: "Print one TURN credential as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			cred, err := newCredentialService(cfg, nil, nil).IssueCredential(cmd.Context(), "cli")
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(issueOutput{
				Username:   cred.Username,
				Credential: cred.Credential,
				TTL:        int64(cred.TTL.Seconds()),
				Timestamp:  cred.IssuedAt.UnixMilli(),
				URIs:       cred.URIs,
			})
		},
	}
}
