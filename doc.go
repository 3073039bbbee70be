/*
Package yokopoke is a WhatsApp ordering assistant for a poke restaurant.

Customers browse the menu, build custom bowls step by step, collect items in a
cart and check out for pickup or delivery, all in a single chat. Free text is
routed by keyword fast paths first and by a language model only when nothing
deterministic matches.

# Concept

Every customer phone owns one durable Session. Inbound messages are deduplicated,
rate limited and queued on the session; the first message of a burst takes a
processing lock, waits a short debounce window and answers the whole burst in a
single turn. The turn is driven by the session mode:

  - NORMAL: the intent router (fast paths, then the classifier).
  - BUILDER: the builder state machine, one customization step at a time.
  - CHECKOUT: the checkout state machine, collecting name, delivery method,
    address and confirmation before the order is committed.
  - PAUSED: a human took over; the bot stays silent until the pause expires.

# Hexagonal Architecture

The Bot depends only on the interfaces in pkg/ports. Adapters provide sessions
(memory, file, redis), orders (memory, postgres), the catalog, the WhatsApp
Cloud API gateway and an OpenAI compatible classifier and transcriber.

# Usage

	store := memory.NewStore()
	cat, err := memory.LoadCatalog("catalog.yaml")
	if err != nil {
		log.Fatal(err)
	}

	bot, err := yokopoke.New(store, cat, memory.NewOrderStore(),
		yokopoke.WithGateway(whatsapp.New(whatsapp.Config{
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_ID"),
			AccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		})),
	)
	if err != nil {
		log.Fatal(err)
	}

	// From the webhook handler:
	bot.Dispatch(ctx, msg)

The yokobot command wires all of this from configuration; see cmd/yokobot.
*/
package yokopoke
