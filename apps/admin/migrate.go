package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/chatgpa/backend/fs"
	"github.com/chatgpa/backend/storage/database"
)

var (
	openDBFunc   = database.Open // mockable
	gooseRunFunc = goose.Run     // mockable
)

func (cli *commandLine) migrate(args []string) error {
	db, err := openDBFunc(cli.conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	command := args[0]
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}

	goose.SetBaseFS(appfs.FS)
	return gooseRunFunc(command, db.DB, "migrations", arguments...)
}
