/*
Package cli provides helpers shared by the sentinel commands.

Output Formatting:

Commands that list data (records, roles, lint findings) return a Table and
let the user pick text, JSON or CSV:

	formatter, err := cli.NewFormatter(cli.OutputFormat(format))
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, table)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
