// Command yokobot runs the Yoko Poke WhatsApp ordering bot.
package main

import (
	_ "time/tzdata" // business hours need America/Mexico_City on slim images
)

func main() {
	Execute()
}
