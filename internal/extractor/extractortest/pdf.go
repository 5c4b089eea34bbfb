// Package extractortest builds small statement files for tests: PDFs with
// one text object per page, optionally RC4 encrypted, and BIFF8 workbooks
// wrapped in a compound file.
package extractortest

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"strings"
)

// passwordPad is the 32-byte padding string of the standard security handler.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var fileID = []byte("statementqa-test")

// permissions grants everything except the reserved low bits.
var permissions int32 = -4

// PDF returns an unencrypted document with one page per entry. Lines within
// a page are separated by "\n"; an empty entry yields a page without text.
func PDF(pages ...string) []byte {
	return buildPDF(pages, nil)
}

// EncryptedPDF protects the document with a 128-bit RC4 user password
// (revision 3). The owner password is the same as the user password.
func EncryptedPDF(password string, pages ...string) []byte {
	return buildPDF(pages, newSecurity(password))
}

type security struct {
	key  []byte
	o, u []byte
}

func buildPDF(pages []string, sec *security) []byte {
	var objs [][]byte
	add := func(body string) int {
		objs = append(objs, []byte(body))
		return len(objs)
	}

	add("<< /Type /Catalog /Pages 2 0 R >>")
	pagesID := add("") // filled once the kids are known
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	kids := make([]string, 0, len(pages))
	for _, text := range pages {
		pageID := len(objs) + 1
		contentID := pageID + 1
		add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, font, contentID))
		data := contentStream(text)
		if sec != nil {
			data = sec.crypt(contentID, data)
		}
		add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objs[pagesID-1] = []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n", i+1)
		b.Write(body)
		b.WriteString("\nendobj\n")
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R", len(objs)+1)
	if sec != nil {
		fmt.Fprintf(&b, " /Encrypt << /Filter /Standard /V 2 /R 3 /Length 128 /P %d /O <%X> /U <%X> >>", permissions, sec.o, sec.u)
		fmt.Fprintf(&b, " /ID [<%X> <%X>]", fileID, fileID)
	}
	fmt.Fprintf(&b, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return b.Bytes()
}

func contentStream(text string) []byte {
	if strings.TrimSpace(text) == "" {
		return []byte("q Q")
	}
	var b bytes.Buffer
	b.WriteString("BT /F1 12 Tf 14 TL 72 720 Td")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(" T*")
		}
		fmt.Fprintf(&b, " (%s) Tj", escapeString(line))
	}
	b.WriteString(" ET")
	return b.Bytes()
}

func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}

func padPassword(pw string) []byte {
	out := make([]byte, 0, 32)
	out = append(out, pw...)
	if len(out) > 32 {
		return out[:32]
	}
	return append(out, passwordPad[:32-len(out)]...)
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// rc4Rounds applies the 19 extra passes of revision 3, each keyed with key
// XOR the round number.
func rc4Rounds(key, data []byte) []byte {
	for i := 1; i <= 19; i++ {
		k := make([]byte, len(key))
		for j := range key {
			k[j] = key[j] ^ byte(i)
		}
		data = rc4Crypt(k, data)
	}
	return data
}

func md5Rounds(key []byte) []byte {
	for i := 0; i < 50; i++ {
		sum := md5.Sum(key)
		key = sum[:]
	}
	return key
}

func newSecurity(password string) *security {
	ownerSum := md5.Sum(padPassword(password))
	ownerKey := md5Rounds(ownerSum[:])
	o := rc4Rounds(ownerKey, rc4Crypt(ownerKey, padPassword(password)))

	p := uint32(permissions)
	h := md5.New()
	h.Write(padPassword(password))
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(fileID)
	key := md5Rounds(h.Sum(nil))

	h.Reset()
	h.Write(passwordPad)
	h.Write(fileID)
	u := rc4Rounds(key, rc4Crypt(key, h.Sum(nil)))
	u = append(u, make([]byte, 16)...)

	return &security{key: key, o: o, u: u}
}

// crypt encrypts an object's stream with the key derived for that object.
func (s *security) crypt(id int, data []byte) []byte {
	h := md5.New()
	h.Write(s.key)
	h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), 0, 0})
	return rc4Crypt(h.Sum(nil), data)
}
