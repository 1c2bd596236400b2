package billing

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/mkrish/voicebill/internal/publishing"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		transcriber *mockTranscriber
		extractor   *mockExtractor
		publisher   *mockPublisher
		storage     *mockStorage
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service = NewService(db, transcriber, extractor, publisher, storage)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		transcriber = newMockTranscriber()
		extractor = newMockExtractor()
		publisher = newMockPublisher()
		storage = newMockStorage()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	getJSON := func(path string, v any) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		if v != nil {
			Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
		}
		return resp
	}

	postJSON := func(path string, body string, v any) *http.Response {
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		if v != nil {
			Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
		}
		return resp
	}

	Describe("handleIndex", func() {
		It("should return HTML containing Voicebill", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Voicebill"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/cart")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/cart", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("handleGetCart", func() {
		It("returns an empty cart for a fresh session", func() {
			var cart Cart
			resp := getJSON("/api/cart", &cart)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(cart.Items).To(BeEmpty())
		})

		It("scopes carts by the X-Session-ID header", func() {
			db.carts["tab2"] = &Cart{
				SessionID: "tab2",
				Items:     []CartItem{{Name: "rice", Quantity: 2, UnitPrice: 120, LineTotal: 240}},
			}

			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/cart", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("X-Session-ID", "tab2")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var cart Cart
			Expect(json.NewDecoder(resp.Body).Decode(&cart)).To(Succeed())
			Expect(cart.Items).To(HaveLen(1))
		})
	})

	Describe("handleAddItem", func() {
		It("adds a manually selected item", func() {
			var cart Cart
			resp := postJSON("/api/cart/items", `{"name":"Item A","quantity":2,"unit_price":10}`, &cart)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(cart.Items).To(HaveLen(1))
			Expect(cart.Items[0].LineTotal).To(Equal(20.0))
		})

		It("rejects a missing name", func() {
			resp := postJSON("/api/cart/items", `{"quantity":2}`, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleUpdateQuantity", func() {
		BeforeEach(func() {
			db.carts[defaultSessionID] = &Cart{
				SessionID: defaultSessionID,
				Items:     []CartItem{{Name: "rice", Quantity: 2, UnitPrice: 120, LineTotal: 240}},
			}
		})

		It("updates the quantity and recomputes the line total", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/cart/items/0", strings.NewReader(`{"quantity":3}`))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var cart Cart
			Expect(json.NewDecoder(resp.Body).Decode(&cart)).To(Succeed())
			Expect(cart.Items[0].LineTotal).To(Equal(360.0))
		})

		It("returns not found for an out-of-range index", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/cart/items/9", strings.NewReader(`{"quantity":3}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleClearCart", func() {
		BeforeEach(func() {
			db.carts[defaultSessionID] = &Cart{
				SessionID: defaultSessionID,
				Items:     []CartItem{{Name: "rice"}},
			}
		})

		It("empties the cart", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/cart", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.carts).NotTo(HaveKey(defaultSessionID))
		})
	})

	Describe("handleProcessRecording", func() {
		postRecording := func() *http.Response {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("audio", "recording.webm")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("audio-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			resp, err := http.Post(ghttpServer.URL()+"/api/recordings", writer.FormDataContentType(), &buf)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the pipeline succeeds", func() {
			It("returns the transcript and updated cart", func() {
				resp := postRecording()
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result struct {
					Transcript string `json:"transcript"`
					Cart       Cart   `json:"cart"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Transcript).To(Equal("2 kg rice for 120 rupees"))
				Expect(result.Cart.Items).To(HaveLen(1))
			})
		})

		When("transcription fails", func() {
			BeforeEach(func() {
				transcriber.err = errors.New("service unavailable")
			})

			It("returns a transcription error kind", func() {
				resp := postRecording()
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

				var result map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result["kind"]).To(Equal("transcription"))
			})
		})

		When("no audio file is attached", func() {
			It("returns bad request", func() {
				var buf bytes.Buffer
				writer := multipart.NewWriter(&buf)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/recordings", writer.FormDataContentType(), &buf)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleExtract", func() {
		It("returns extracted items", func() {
			var result struct {
				Items []json.RawMessage `json:"items"`
			}
			resp := postJSON("/api/extractions", `{"text":"2 kg rice for 120 rupees"}`, &result)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(result.Items).To(HaveLen(1))
		})

		It("rejects empty text", func() {
			resp := postJSON("/api/extractions", `{"text":""}`, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleGenerateBill", func() {
		When("the cart is empty", func() {
			It("returns an empty_cart error kind", func() {
				var result map[string]string
				resp := postJSON("/api/invoices", ``, &result)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(result["kind"]).To(Equal("empty_cart"))
			})
		})

		When("the cart has items", func() {
			BeforeEach(func() {
				db.carts[defaultSessionID] = &Cart{
					SessionID: defaultSessionID,
					Items:     []CartItem{{Name: "A", Quantity: 2, UnitPrice: 10, LineTotal: 20}},
				}
			})

			It("returns the invoice with its grand total", func() {
				var invoice Invoice
				resp := postJSON("/api/invoices", ``, &invoice)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(invoice.GrandTotal).To(Equal(20.0))
				Expect(invoice.Number).To(HavePrefix("INV-"))
			})
		})
	})

	Describe("handlePublishInvoice", func() {
		BeforeEach(func() {
			db.invoices["inv1"] = &Invoice{
				ID:         "inv1",
				Number:     "INV-20250601-ABC123",
				Items:      []CartItem{{Name: "A", Quantity: 2, UnitPrice: 10, LineTotal: 20}},
				GrandTotal: 20,
			}
		})

		When("all stages succeed", func() {
			It("returns the links and QR image", func() {
				var result map[string]string
				resp := postJSON("/api/invoices/inv1/publish", ``, &result)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(result["original_url"]).To(Equal("https://img.example/bill.png"))
				Expect(result["short_url"]).To(Equal("https://tiny.example/b1"))

				qr, err := base64.StdEncoding.DecodeString(result["qr"])
				Expect(err).NotTo(HaveOccurred())
				Expect(qr).To(Equal([]byte("qr-bytes")))
			})
		})

		When("shorten fails after a successful upload", func() {
			BeforeEach(func() {
				publisher.result = &publishing.Result{
					ImagePNG:    []byte("png-bytes"),
					OriginalURL: "https://img.example/bill.png",
				}
				publisher.err = publishing.ErrShorten
			})

			It("surfaces the shorten error but retains the original URL", func() {
				var result map[string]any
				resp := postJSON("/api/invoices/inv1/publish", ``, &result)
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				Expect(result["kind"]).To(Equal("shorten"))
				Expect(result["original_url"]).To(Equal("https://img.example/bill.png"))
				Expect(result["short_url"]).To(Equal(""))
			})
		})

		When("the invoice does not exist", func() {
			It("returns bad gateway with an internal kind", func() {
				var result map[string]string
				resp := postJSON("/api/invoices/missing/publish", ``, &result)
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				Expect(result["kind"]).To(Equal("internal"))
			})
		})
	})

	Describe("handleGetInvoiceImage", func() {
		It("serves the stored PNG", func() {
			storage.images["inv1"] = []byte("png-bytes")

			resp, err := http.Get(ghttpServer.URL() + "/api/invoices/inv1/image")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("png-bytes")))
		})

		It("returns not found for a missing image", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices/missing/image")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
