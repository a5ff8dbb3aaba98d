package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a stored avatar",
	Long: `Download a stored avatar by its reference name, for example
"42/avatar.jpg" or "default.jpg".

The avatar endpoint is public; no token is required. Use -o - to write
the image to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file (default: base name, - for stdout)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	result, content, err := c.FetchAvatar(cmd.Context(), args[0], downloadOutput)
	if err != nil {
		return err
	}

	if content != nil {
		defer func() { _ = content.Close() }()
		_, err = io.Copy(os.Stdout, content)
		return err
	}

	fmt.Printf("Saved %s (%s, %d bytes)\n", result.LocalPath, result.ContentType, result.Size)
	return nil
}
