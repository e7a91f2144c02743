package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/sqlany/internal/filestore"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var latest, list bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Publish a JSON reflection of the schema to the object store",
		Long: `Reflects every table, view and routine of the schema and uploads the result
to <bucket>/<schema>/<timestamp>.json. With --list or --latest nothing is
reflected; existing snapshots are read back instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := a.publisher(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case list:
				objs, err := pub.List(cmd.Context(), a.schema())
				if err != nil {
					return err
				}
				rows := make([][]string, len(objs))
				for i, o := range objs {
					rows[i] = []string{o.Key, o.LastModified.Format("2006-01-02 15:04:05")}
				}
				return a.printNames(cmd.OutOrStdout(), []string{"KEY", "MODIFIED"}, rows, objs)
			case latest:
				snap, err := pub.Latest(cmd.Context(), a.schema())
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), snap)
			}

			return publish(cmd, a, pub)
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "print the most recent snapshot")
	cmd.Flags().BoolVar(&list, "list", false, "list stored snapshots")
	cmd.MarkFlagsMutuallyExclusive("latest", "list")
	return cmd
}

func publish(cmd *cobra.Command, a *app, pub *filestore.Publisher) error {
	if err := a.open(cmd.Context()); err != nil {
		return err
	}
	ctx, cancel := a.queryContext(cmd.Context())
	defer cancel()

	info, err := a.inspector.InspectSchema(ctx, a.schema())
	if err != nil {
		return err
	}
	obj, err := pub.Publish(cmd.Context(), a.inspector.Dialect().Name(), info)
	if err != nil {
		return err
	}
	return a.print(cmd.OutOrStdout(), obj)
}
