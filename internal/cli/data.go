package cli

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newServersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List backends and their player counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ServerList

			if err := client.Get("/api/servers", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayersCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "players",
		Short: "List players on a backend, or backend names without --server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := withQuery("/api/players", map[string]string{"server": server})

			if server == "" {
				var result ServerNames
				if err := client.Get(path, &result); err != nil {
					return err
				}
				output(cmd).Print(result)
				return nil
			}

			var result PlayerList
			if err := client.Get(path, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server-name", "", "Backend to list")

	return cmd
}

func newPlayerCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "player NAME",
		Short: "Show the data a backend reported for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := withQuery("/api/player/"+url.PathEscape(args[0]), map[string]string{"server": server})

			body, err := client.Raw(http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			output(cmd).PrintRaw(body)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server-name", "", "Backend holding the player (required)")
	_ = cmd.MarkFlagRequired("server-name")

	return cmd
}
