package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		serverURL  string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3 document describing every AeroCatalog route.
The same document is served at /api/openapi.json.`,
		Example: `  aerocatalog openapi                 # print to stdout
  aerocatalog openapi -o openapi.json # write to file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header := "x-api-key"
			if cfg, err := loadConfig(); err == nil {
				header = cfg.Auth.APIKeyHeader
			}
			if outputFile == "" {
				return runOpenAPI(cmd.OutOrStdout(), serverURL, header)
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := runOpenAPI(f, serverURL, header); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&serverURL, "server-url", "/api", "Server URL recorded in the document")

	return cmd
}

func runOpenAPI(out io.Writer, serverURL, keyHeader string) error {
	doc, err := openapi.Generate(openapi.Options{
		Version:   versionString(),
		ServerURL: serverURL,
		KeyHeader: keyHeader,
	})
	if err != nil {
		return err
	}
	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}
