package cli

import (
	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := rest.Register(args[0], args[1])
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(result.Token); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*result)
			out.PrintMessage("Token saved to " + cfg.TokenFile)
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in to an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := rest.Login(args[0], args[1])
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(result.Token); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*result)
			out.PrintMessage("Token saved to " + cfg.TokenFile)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rest.Health(); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage("ok")
			return nil
		},
	}
}
