package main

import "siramm-project/web-service/cli"

func main() {
	cli.Execute()
}
