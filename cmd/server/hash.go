package main

import (
	"fmt"
	"os"

	"annotation-review/internal/identity"

	"github.com/spf13/cobra"
)

var hashFlags struct {
	dimension string
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Print the file hash and task hash the service would assign to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHash,
}

func init() {
	hashCmd.Flags().StringVarP(&hashFlags.dimension, "dimension", "d", "", "Dimension name")
}

func runHash(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fileHash, err := identity.FileHash(f)
	if err != nil {
		return fmt.Errorf("hash %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file_hash: %s\n", fileHash)
	fmt.Fprintf(out, "task_hash: %s\n", identity.TaskHash(fileHash, hashFlags.dimension))
	return nil
}
