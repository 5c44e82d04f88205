package main

import "github.com/imovelware/vendazap/cmd"

func main() {
	cmd.Execute()
}
