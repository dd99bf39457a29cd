// Package access issues access tokens for ACCESS_TOKEN.
package access

import (
	"fmt"
	"github.com/myrjola/portrait/internal/random"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "access",
	Title: "Access control",
}

func init() {
	Token.Flags().Uint("length", 12, "number of characters") //nolint:mnd // default token length
}

var Token = &cobra.Command{
	Use:     "token",
	GroupID: "access",
	Short:   "Generate an access token",
	Long: `Prints a random token to put in ACCESS_TOKEN. Respondents start the dialog with /start <token>
or by sending the token as their first message.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		length, err := cmd.Flags().GetUint("length")
		if err != nil {
			return err
		}
		if length == 0 {
			return fmt.Errorf("length must be positive") //nolint:err113 // flag validation
		}
		token, err := random.Token(length)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
