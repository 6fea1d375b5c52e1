package main

import (
	"log"

	"evcs/internal/config"
	"evcs/server"
)

func main() {

	conf, err := config.GetConfig()
	if err != nil {
		log.Println("loading configuration failed", err)
		return
	}

	centralSystem, err := server.NewCentralSystem(conf)
	if err != nil {
		log.Println("central system initialization failed", err)
		return
	}
	centralSystem.Start()

}
