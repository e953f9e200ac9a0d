package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackernews/oauthd/generator"
)

// keys below this length are rejected by config validation
const minimumKeyLength = 32

var keyLength int

var keyCommand = cobra.Command{
	Use:   "random-key",
	Short: "generates a random key",
	Long:  `prints a random url safe key, use it for server.csrf-token (exactly 32) or manage-endpoint.admin-key`,
	Run: func(cmd *cobra.Command, args []string) {
		if keyLength < minimumKeyLength {
			fmt.Fprintf(os.Stderr, "keys shorter than %d characters are rejected by the configuration\r\n", minimumKeyLength)
			os.Exit(1)
			return
		}
		// every random byte yields more than one base64 character
		key := string(generator.New().CreateSecureTokenWithSize(keyLength))
		fmt.Println(key[:keyLength])
	},
}

func init() {
	keyCommand.Flags().IntVarP(&keyLength, "length", "l", minimumKeyLength, "length of the key in characters")
}
