package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adgen/internal/api"
	"adgen/internal/ipc"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Register and inspect product images",
	}
	contentCmd.AddCommand(newContentAddCommand(ctx))
	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentShowCommand(ctx))
	return contentCmd
}

func newContentAddCommand(ctx *commandContext) *cobra.Command {
	var req api.ContentRequest
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <image-url>",
		Short: "Register a product image by its https URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ImageURL = args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				content, err := client.AddContent(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, content)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered content %s\n", content.ContentID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Category, "category", "", "Product category (상의, 하의, 아우터, ...)")
	cmd.Flags().StringVar(&req.SubCategory, "sub-category", "", "Product sub-category")
	cmd.Flags().StringVar(&req.Color, "color", "", "Product color")
	cmd.Flags().StringVar(&req.Material, "material", "", "Product material")
	cmd.Flags().StringVar(&req.Fit, "fit", "", "Product fit")
	cmd.Flags().StringSliceVar(&req.StyleTags, "tag", nil, "Style tag (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your registered product images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				contents, err := client.Contents(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, contents)
				}
				if len(contents) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No content registered")
					return nil
				}
				rows := make([][]string, 0, len(contents))
				for _, c := range contents {
					rows = append(rows, []string{c.ContentID, c.Category, c.Color, strings.Join(c.StyleTags, ", "), c.ImageURL})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Content", "Category", "Color", "Tags", "Image"}, rows, nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newContentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <content-id>",
		Short: "Show one product image record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				content, err := client.Content(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, content)
			})
		},
	}
}
