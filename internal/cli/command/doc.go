// Package command defines the tokentables command line.
//
// It uses urfave/cli/v2. Commands:
//
//	serve            run the tables with their sweeper and metrics endpoint
//	token            mint tokens with the configured generator
//	config show      print the effective configuration, secrets masked
//	config validate  load and verify the configuration
//	store stats      count the records of the configured store
//	store sessions   list stored session secrets
//	store gc         run the storage engine's garbage collection
//	version          print build information
package command
