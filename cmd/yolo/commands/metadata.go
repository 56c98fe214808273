package commands

import (
	"encoding/json"
	"os"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewMetadataCmd creates the metadata command.
func NewMetadataCmd(opts *GlobalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "metadata <model>",
		Short: "Print the metadata of an ONNX model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			if err := providers.Initialize(cfg.Runtime.LibraryPath); err != nil {
				return err
			}
			defer providers.Shutdown()

			lookup, err := inference.ReadMetadata(args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if raw {
				return errors.Wrap(enc.Encode(lookup), "error writing output")
			}

			meta, err := models.Resolve(lookup, models.Metadata{Stride: cfg.Model.Stride})
			if err != nil {
				return err
			}
			return errors.Wrap(enc.Encode(meta), "error writing output")
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the custom metadata map without resolving it")

	return cmd
}
