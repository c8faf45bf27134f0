package extract

import (
	"strings"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

const systemPrompt = "Você extrai dados de recibos, cupons e notas fiscais brasileiras. " +
	"Responda SOMENTE com um objeto JSON válido, sem markdown e sem comentários. " +
	"Comece a resposta com { e termine com }."

const schemaPrompt = `Extraia os campos abaixo. Use null quando um campo não estiver presente.
Se o conteúdo não for um comprovante de compra, responda {"is_valid_receipt": false, "reason": "<motivo>"}.

{
  "is_valid_receipt": true,
  "merchant_name": "nome do estabelecimento",
  "cnpj": "00.000.000/0000-00",
  "address": "endereço",
  "city": "cidade",
  "state": "UF",
  "date": "DD/MM/AAAA",
  "time": "HH:MM",
  "total": "valor total pago, ex: 87,50",
  "subtotal": "valor antes de descontos",
  "discount": "desconto",
  "payment_method": "forma de pagamento",
  "category": "uma de: {{CATEGORIES}}",
  "document_number": "número da nota",
  "access_key": "chave de acesso com 44 dígitos",
  "items": [
    {"descricao": "produto", "quantidade": 1, "unidade": "UN", "valor_unitario": "0,00", "valor_total": "0,00"}
  ]
}`

func buildPrompt(req service.ExtractRequest, defaultLocale string) Prompt {
	var b strings.Builder
	b.WriteString(strings.Replace(schemaPrompt, "{{CATEGORIES}}", strings.Join(model.Categories, ", "), 1))

	locale := req.LocaleHint
	if locale == "" {
		locale = defaultLocale
	}
	if locale != "" {
		b.WriteString("\n\nIdioma e formato regional esperado: ")
		b.WriteString(locale)
	}

	if len(req.Image) > 0 {
		b.WriteString("\n\nLeia a imagem do comprovante anexada.")
	}
	if req.Text != "" {
		b.WriteString("\n\nConteúdo:\n")
		b.WriteString(req.Text)
	}

	return Prompt{
		System:        systemPrompt,
		User:          b.String(),
		Image:         req.Image,
		ImageMIMEType: req.ImageMIMEType,
	}
}
