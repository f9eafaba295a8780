// Package gate is the confirmation step between a valid order and the
// WhatsApp hand-off.
package gate

// Prompt is the notice shown before the hand-off. Nothing is committed:
// the bakery still has to confirm it can do the order.
type Prompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Confirm string `json:"confirm"`
	Cancel  string `json:"cancel"`
}

func PromptFor(kind string) Prompt {
	p := Prompt{
		Title:   "Confirmar Pedido",
		Confirm: "Confirmar",
		Cancel:  "Cancelar",
	}
	if kind == "cake" {
		p.Message = "Você está ciente de que essa encomenda é para iniciar a conversa com o confeiteiro e que ele precisará confirmar se existe a possibilidade de realizar o serviço?"
	} else {
		p.Message = "Você está ciente de que essa encomenda é para iniciar a conversa e será necessário confirmar se haverá disponibilidade para realizar o serviço?"
	}
	return p
}
