package cli

import (
	"github.com/spf13/cobra"
)

// usernameAvailable is the server's reply when a reservation succeeds
const usernameAvailable = "Username available"

func newReserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <name>",
		Short: "Reserve a display name",
		Long: `Reserve a display name on the server.

The reservation lapses after a few seconds unless a connection binds the
name, so this is mostly useful for checking whether a name is free.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := reserve(args[0])
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func reserve(name string) (ReserveResult, error) {
	var message string
	if err := client.Post("/register-username", map[string]string{"username": name}, &message); err != nil {
		return ReserveResult{}, err
	}
	return ReserveResult{
		Username:  name,
		Available: message == usernameAvailable,
		Message:   message,
	}, nil
}
