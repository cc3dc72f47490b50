package game

var defaultTopics = []string{
	"Things you find in a kitchen",
	"A famous painter",
	"Something that is yellow",
	"A breakfast food",
	"An animal with stripes",
	"A board game",
	"Something you take camping",
	"A word that rhymes with cat",
	"A superhero",
	"A fruit that is red",
	"Something in a toolbox",
	"A city in Europe",
	"A musical instrument",
	"A sport played with a ball",
	"Something that melts",
	"A pizza topping",
	"A zoo animal",
	"Something you wear in winter",
	"A planet",
	"A dessert",
}

// DefaultTopics returns a copy of the built-in system topic pool.
func DefaultTopics() []string {
	return append([]string(nil), defaultTopics...)
}
