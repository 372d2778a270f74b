package main

import "github.com/chatgpa/backend/storage/database"

var createDBFunc = database.CreateIfNotExist // mockable

func (cli *commandLine) createDB() error {
	return createDBFunc(cli.conf)
}
