package main

import "github.com/Builder-Lawyers/certify-backend/cmd"

//go:generate go tool oapi-codegen -config ./api/cfg.yaml ./api/openapi.yaml
func main() {
	cmd.Init()
}
