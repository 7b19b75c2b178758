package suggest

import "strings"

// DefaultPrompt is used when no prompt file is configured.
const DefaultPrompt = `You are an AI assistant helping to organize scanned documents.

Context: {context}

{extra_instructions}

Analyze the provided document image(s) and suggest:
1. A descriptive filename
2. An appropriate destination folder path

Respond with JSON:
{
  "filename": "YYYYMMDD Description.ext",
  "destination": "Category/Subcategory",
  "confidence": 0.95,
  "reasoning": "Brief explanation"
}
`

// DefaultContext describes a generic filing tree.
const DefaultContext = `
This is a general document filing system. Common categories include:

- Finances/Bills (Utility bills, invoices)
- Finances/Statements (Bank statements, credit card statements)
- Medical/Records (Medical records, prescriptions)
- Medical/Insurance (Insurance documents)
- Legal/Contracts (Contracts, agreements)
- Personal/Correspondence (Letters, notices)
- Household/Manuals (Product manuals, warranties)
- Taxes/Receipts (Tax documents, receipts)

Use YYYYMMDD format for dates when visible in documents.
Use clear, descriptive names with Capitalized Words and spaces. Avoid underscores.
`

// BuildPrompt substitutes {context} first and {extra_instructions} second,
// so placeholder text inside the context is expanded too.
func BuildPrompt(template, context, extra string) string {
	prompt := strings.ReplaceAll(template, "{context}", context)
	return strings.ReplaceAll(prompt, "{extra_instructions}", extra)
}
