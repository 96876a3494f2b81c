package main

import (
	"flag"
	"log"
	"os"

	"github.com/bdwalton/famigo/apu"
	"github.com/bdwalton/famigo/console"
	"github.com/bdwalton/famigo/mappers"
	"github.com/bdwalton/famigo/nesrom"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	romFile  = flag.String("nes_rom", "", "Path to NES ROM to run.")
	saveFile = flag.String("save_file", "", "Path to the battery-backed save RAM file.")
)

func main() {
	flag.Parse()

	rom, err := nesrom.New(*romFile)
	if err != nil {
		log.Fatalf("Invalid ROM: %v", err)
	}

	if *saveFile != "" && rom.HasSaveRAM() {
		if data, err := os.ReadFile(*saveFile); err == nil {
			rom.LoadSaveData(data)
		}
	}

	m, err := mappers.Get(rom)
	if err != nil {
		log.Fatalf("Couldn't Get() mapper: %v", err)
	}

	famigo := console.New(m, apu.NewNull())

	if err := ebiten.RunGame(famigo); err != nil {
		log.Fatal(err)
	}

	if *saveFile != "" && rom.HasSaveRAM() {
		if err := os.WriteFile(*saveFile, famigo.SaveData(), 0644); err != nil {
			log.Printf("Couldn't write save file %q: %v", *saveFile, err)
		}
	}
}
