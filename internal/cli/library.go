package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/0xlemi/bertcam/internal/library"
	"github.com/0xlemi/bertcam/internal/output"
)

func NewLibraryCmd(deps *Dependencies) *cobra.Command {
	var showPaths bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List saved recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			policy, err := library.ParsePolicy(deps.Config.LibraryAuthorization)
			if err != nil {
				return err
			}
			lib := library.New(deps.Config.LibraryDir, policy, deps.Logger)
			assets, err := lib.Assets()
			if err != nil {
				return err
			}
			if len(assets) == 0 {
				formatter.Info("No recordings found")
				return nil
			}

			formatter.AssetListHeader(lib.Dir(), len(assets))
			for _, a := range assets {
				formatter.AssetListItem(a)
				if showPaths {
					formatter.Info(a.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPaths, "paths", false, "Show the file path of each recording")

	return cmd
}
