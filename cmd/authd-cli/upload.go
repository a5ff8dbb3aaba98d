package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <user-id> <file>",
	Short: "Upload a user's avatar",
	Long: `Upload an image file as the avatar of the given user.

Accepted image types are JPEG and PNG. Anything else makes the server
fall back to the default avatar. The bearer token must belong to the
user or carry the admin permission.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	result, err := c.UploadAvatar(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Avatar: %s\n", result.Avatar)
	fmt.Printf("URL:    %s\n", result.URL)
	return nil
}
