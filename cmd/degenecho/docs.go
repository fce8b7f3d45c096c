package main

//go:generate swag init -g cmd/degenecho/main.go -o docs

// @title           Degen Echo API
// @version         0.1.0
// @description     Pump, dump or stagnate wagering with escrowed stakes and authority settlement.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
